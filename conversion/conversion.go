// Package conversion validates amounts and converts them between two rates
// quoted against the same base currency.
package conversion

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/infigaming-com/go-fxconvert/errors"
)

const (
	MsgAmountRequired    = "Please enter an amount"
	MsgAmountInvalid     = "Please enter a valid amount"
	MsgAmountNotPositive = "Amount must be greater than zero"

	RateDisplayPlaces   = 4
	AmountDisplayPlaces = 2
)

var (
	ErrAmountRequired    = errors.NewError(errors.ErrCodeAmountRequired, MsgAmountRequired, nil)
	ErrAmountInvalid     = errors.NewError(errors.ErrCodeInvalidAmount, MsgAmountInvalid, nil)
	ErrAmountNotPositive = errors.NewError(errors.ErrCodeAmountNotPositive, MsgAmountNotPositive, nil)
)

type Validation struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// ParseAmount parses text as a finite amount greater than zero. Surrounding
// whitespace is ignored.
func ParseAmount(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrAmountRequired
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.NewError(errors.ErrCodeInvalidAmount, MsgAmountInvalid, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrAmountInvalid
	}
	if v <= 0 {
		return 0, ErrAmountNotPositive
	}
	return v, nil
}

func ValidateAmount(text string) Validation {
	if _, err := ParseAmount(text); err != nil {
		return Validation{Error: err.Error()}
	}
	return Validation{IsValid: true}
}

// Convert returns amount * (toRate / fromRate). Callers must check both
// rates with Ready first.
func Convert(amount, fromRate, toRate float64) float64 {
	return amount * (toRate / fromRate)
}

// Rate is the full-precision cross rate from one currency to the other.
func Rate(fromRate, toRate float64) float64 {
	return toRate / fromRate
}

func DisplayRate(fromRate, toRate float64) string {
	return decimal.NewFromFloat(Rate(fromRate, toRate)).StringFixed(RateDisplayPlaces)
}

func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(AmountDisplayPlaces)
}

// RateSource is anything that can quote a rate against its base currency.
type RateSource interface {
	RateOf(code string) (float64, bool)
}

// Ready looks both codes up in rates. ok is false while either rate is
// missing or not positive; conversion is deferred, not failed.
func Ready(rates RateSource, from, to string) (fromRate, toRate float64, ok bool) {
	if rates == nil {
		return 0, 0, false
	}
	fromRate, okFrom := rates.RateOf(from)
	toRate, okTo := rates.RateOf(to)
	if !okFrom || !okTo || !usable(fromRate) || !usable(toRate) {
		return 0, 0, false
	}
	return fromRate, toRate, true
}

func usable(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}
