package history

import (
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/infigaming-com/go-fxconvert/reports"
)

var exportHeaders = []string{"Time", "From", "To", "Amount", "Result", "Rate"}

// Table lays records out for the reports package, times in UTC.
func Table(records []Record) reports.Table {
	return reports.Table{
		Title:   "Conversion history",
		Headers: exportHeaders,
		Rows: lo.Map(records, func(r Record, _ int) []string {
			return []string{
				r.Time().UTC().Format(time.RFC3339),
				r.From,
				r.To,
				strconv.FormatFloat(r.Amount, 'f', -1, 64),
				r.DisplayResult(),
				r.DisplayRate(),
			}
		}),
	}
}

// Export writes records to w as csv, xlsx or pdf.
func Export(w io.Writer, format reports.Format, records []Record, opts ...reports.Option) error {
	return reports.Write(w, format, Table(records), opts...)
}
