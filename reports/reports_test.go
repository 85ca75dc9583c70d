package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:   "Conversions",
		Headers: []string{"From", "To", "Amount"},
		Rows: [][]string{
			{"USD", "EUR", "100.00"},
			{"GBP", "JPY", "12.50"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "XLSX", want: FormatExcel},
		{in: "excel", want: FormatExcel},
		{in: " pdf ", want: FormatPDF},
		{in: "docx", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "xlsx", FormatExcel.Extension())
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleTable()))
	assert.Equal(t, "From,To,Amount\nUSD,EUR,100.00\nGBP,JPY,12.50\n", buf.String())

	t.Run("quotes cells with commas", func(t *testing.T) {
		out, err := Generate(FormatCSV, Table{Headers: []string{"a"}, Rows: [][]string{{"1,000"}}})
		require.NoError(t, err)
		assert.Equal(t, "a\n\"1,000\"\n", string(out))
	})
}

func TestWrite_Excel(t *testing.T) {
	out, err := Generate(FormatExcel, sampleTable(), WithSheetName("History"))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("History")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"From", "To", "Amount"},
		{"USD", "EUR", "100.00"},
		{"GBP", "JPY", "12.50"},
	}, rows)
}

func TestWrite_PDF(t *testing.T) {
	out, err := Generate(FormatPDF, sampleTable(), WithHeaderColor("#FF5733"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	t.Run("spans pages", func(t *testing.T) {
		table := Table{Headers: []string{"n"}}
		for i := 0; i < 100; i++ {
			table.Rows = append(table.Rows, []string{strings.Repeat("x", i%10+1)})
		}
		out, err := Generate(FormatPDF, table)
		require.NoError(t, err)
		// one "/Type /Pages" tree plus a "/Type /Page" per page
		assert.Greater(t, bytes.Count(out, []byte("/Type /Page")), 2)
	})

	t.Run("bad header color", func(t *testing.T) {
		_, err := Generate(FormatPDF, sampleTable(), WithHeaderColor("grey"))
		assert.Error(t, err)
	})
}

func TestWrite_Invalid(t *testing.T) {
	var buf bytes.Buffer

	err := Write(&buf, FormatCSV, Table{})
	assert.Error(t, err)

	err = Write(&buf, FormatCSV, Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.ErrorContains(t, err, "row 0 has 1 cells, want 2")

	err = Write(&buf, Format("docx"), sampleTable())
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#E0E0E0")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 224, G: 224, B: 224}, c)

	c, err = ParseHexColor("ff5733")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 255, G: 87, B: 51}, c)

	_, err = ParseHexColor("#12345")
	assert.Error(t, err)
	_, err = ParseHexColor("#GGGGGG")
	assert.Error(t, err)
}
