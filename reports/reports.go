// Package reports renders a table as CSV, Excel or PDF.
package reports

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ParseFormat accepts csv, xlsx, excel and pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Extension is the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (t Table) validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table has no headers")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

type Options struct {
	HeaderColor string // hex, e.g. "#E0E0E0"
	SheetName   string
}

type Option func(*Options)

func WithHeaderColor(color string) Option {
	return func(o *Options) {
		o.HeaderColor = color
	}
}

func WithSheetName(name string) Option {
	return func(o *Options) {
		o.SheetName = name
	}
}

func defaultOptions() *Options {
	return &Options{
		HeaderColor: "#E0E0E0",
		SheetName:   "Sheet1",
	}
}

// Write renders table to w in the given format.
func Write(w io.Writer, format Format, table Table, opts ...Option) error {
	if err := table.validate(); err != nil {
		return err
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, table)
	case FormatExcel:
		return writeExcel(w, table, options)
	case FormatPDF:
		return writePDF(w, table, options)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// Generate is Write into a byte slice.
func Generate(format Format, table Table, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, table, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
