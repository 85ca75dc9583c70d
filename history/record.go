package history

import (
	"time"

	"github.com/infigaming-com/go-fxconvert/util"
)

// Record is one completed conversion. Rate keeps full precision.
type Record struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Result    float64 `json:"result"`
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
}

// Time returns the record timestamp, stored as Unix milliseconds.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

func (r Record) DisplayResult() string {
	return util.FormatFixed(r.Result, 2)
}

func (r Record) DisplayRate() string {
	return util.FormatFixed(r.Rate, 4)
}

type document struct {
	Conversions []Record `json:"conversions"`
}
