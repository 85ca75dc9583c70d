package reports

import (
	"encoding/csv"
	"fmt"
	"io"
)

func writeCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(table.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write data row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
