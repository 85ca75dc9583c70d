// Package currency is the static lookup table of supported currency codes
// and their display metadata.
package currency

import (
	"regexp"

	"github.com/samber/lo"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Common currency codes
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
)

// supported mirrors the frankfurter.app currency set.
var supported = []Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Symbol: "£"},
	{Code: "JPY", Name: "Japanese Yen", Symbol: "¥"},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$"},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$"},
	{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF"},
	{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥"},
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹"},
	{Code: "MXN", Name: "Mexican Peso", Symbol: "$"},
	{Code: "BGN", Name: "Bulgarian Lev", Symbol: "лв"},
	{Code: "BRL", Name: "Brazilian Real", Symbol: "R$"},
	{Code: "CZK", Name: "Czech Koruna", Symbol: "Kč"},
	{Code: "DKK", Name: "Danish Krone", Symbol: "kr"},
	{Code: "HKD", Name: "Hong Kong Dollar", Symbol: "HK$"},
	{Code: "HUF", Name: "Hungarian Forint", Symbol: "Ft"},
	{Code: "IDR", Name: "Indonesian Rupiah", Symbol: "Rp"},
	{Code: "ILS", Name: "Israeli New Shekel", Symbol: "₪"},
	{Code: "ISK", Name: "Icelandic Króna", Symbol: "kr"},
	{Code: "KRW", Name: "South Korean Won", Symbol: "₩"},
	{Code: "MYR", Name: "Malaysian Ringgit", Symbol: "RM"},
	{Code: "NOK", Name: "Norwegian Krone", Symbol: "kr"},
	{Code: "NZD", Name: "New Zealand Dollar", Symbol: "NZ$"},
	{Code: "PHP", Name: "Philippine Peso", Symbol: "₱"},
	{Code: "PLN", Name: "Polish Złoty", Symbol: "zł"},
	{Code: "RON", Name: "Romanian Leu", Symbol: "lei"},
	{Code: "SEK", Name: "Swedish Krona", Symbol: "kr"},
	{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"},
	{Code: "THB", Name: "Thai Baht", Symbol: "฿"},
	{Code: "TRY", Name: "Turkish Lira", Symbol: "₺"},
	{Code: "ZAR", Name: "South African Rand", Symbol: "R"},
}

// Registry answers whether a code is supported and what it looks like.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	list   []Currency
	byCode map[string]Currency
}

func NewRegistry(list []Currency) *Registry {
	filtered := lo.UniqBy(lo.Filter(list, func(c Currency, _ int) bool {
		return IsCodeShape(c.Code)
	}), func(c Currency) string {
		return c.Code
	})
	return &Registry{
		list:   filtered,
		byCode: lo.KeyBy(filtered, func(c Currency) string { return c.Code }),
	}
}

var defaultRegistry = NewRegistry(supported)

// Default returns the built-in registry.
func Default() *Registry {
	return defaultRegistry
}

// IsCodeShape reports whether code is exactly three uppercase Latin letters.
func IsCodeShape(code string) bool {
	return codePattern.MatchString(code)
}

// IsSupported reports whether code has the right shape and is in the registry.
func (r *Registry) IsSupported(code string) bool {
	if !IsCodeShape(code) {
		return false
	}
	_, ok := r.byCode[code]
	return ok
}

func (r *Registry) Lookup(code string) (Currency, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// List returns a copy of all currencies in registry order.
func (r *Registry) List() []Currency {
	return append([]Currency(nil), r.list...)
}

// Codes returns all supported codes in registry order.
func (r *Registry) Codes() []string {
	return lo.Map(r.list, func(c Currency, _ int) string { return c.Code })
}

// Alternate returns the first registry code different from code, or code
// itself when the registry has nothing else.
func (r *Registry) Alternate(code string) string {
	c, ok := lo.Find(r.list, func(c Currency) bool { return c.Code != code })
	if !ok {
		return code
	}
	return c.Code
}

// Ordered splits the registry for a picker: favorites first (in favorite
// order, unknown codes skipped), then every remaining currency.
func (r *Registry) Ordered(favorites []string) (favs []Currency, rest []Currency) {
	favs = lo.FilterMap(favorites, func(code string, _ int) (Currency, bool) {
		return r.Lookup(code)
	})
	favs = lo.UniqBy(favs, func(c Currency) string { return c.Code })
	picked := lo.SliceToMap(favs, func(c Currency) (string, struct{}) { return c.Code, struct{}{} })
	rest = lo.Filter(r.list, func(c Currency, _ int) bool {
		_, ok := picked[c.Code]
		return !ok
	})
	return favs, rest
}
