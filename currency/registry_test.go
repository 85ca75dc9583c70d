package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeShape(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"USD", true},
		{"EURO", false},
		{"12", false},
		{"us", false},
		{"usd", false},
		{"U1D", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCodeShape(tt.code))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := Default()

	t.Run("supported codes", func(t *testing.T) {
		assert.True(t, r.IsSupported("USD"))
		assert.True(t, r.IsSupported("SEK"))
		assert.False(t, r.IsSupported("XYZ"))
		assert.False(t, r.IsSupported("usd"))
	})

	t.Run("lookup", func(t *testing.T) {
		c, ok := r.Lookup("GBP")
		assert.True(t, ok)
		assert.Equal(t, "British Pound", c.Name)
		assert.Equal(t, "£", c.Symbol)

		_, ok = r.Lookup("ABC")
		assert.False(t, ok)
	})

	t.Run("list is a copy", func(t *testing.T) {
		list := r.List()
		list[0].Code = "XXX"
		assert.Equal(t, "USD", r.List()[0].Code)
	})

	t.Run("alternate", func(t *testing.T) {
		assert.Equal(t, "EUR", r.Alternate("USD"))
		assert.Equal(t, "USD", r.Alternate("EUR"))

		single := NewRegistry([]Currency{{Code: "USD"}})
		assert.Equal(t, "USD", single.Alternate("USD"))
	})

	t.Run("ordered puts favorites first", func(t *testing.T) {
		small := NewRegistry([]Currency{{Code: "USD"}, {Code: "EUR"}, {Code: "GBP"}, {Code: "JPY"}})
		favs, rest := small.Ordered([]string{"JPY", "NOPE", "EUR", "JPY"})
		assert.Equal(t, []string{"JPY", "EUR"}, codes(favs))
		assert.Equal(t, []string{"USD", "GBP"}, codes(rest))
	})

	t.Run("construction drops malformed and duplicate entries", func(t *testing.T) {
		r := NewRegistry([]Currency{{Code: "USD"}, {Code: "usd"}, {Code: "USD", Name: "dup"}, {Code: "TOOLONG"}})
		assert.Equal(t, []string{"USD"}, r.Codes())
	})
}

func codes(list []Currency) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Code)
	}
	return out
}
