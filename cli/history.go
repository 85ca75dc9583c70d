package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/history"
	"github.com/infigaming-com/go-fxconvert/reports"
)

func newHistoryCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, clear or export recent conversions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent conversions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(_ context.Context, a *app.App, out *OutputFormatter) error {
				records := a.History.List()
				return out.Success(records, func(w io.Writer) {
					if len(records) == 0 {
						fmt.Fprintln(w, "No conversions yet.")
						return
					}
					for _, rec := range records {
						fmt.Fprintf(w, "%s  %g %s = %s %s  (rate %s)\n",
							rec.Time().Local().Format(time.DateTime),
							rec.Amount, rec.From, rec.DisplayResult(), rec.To, rec.DisplayRate())
					}
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(_ context.Context, a *app.App, out *OutputFormatter) error {
				a.History.Clear()
				return out.Success(a.History.List(), func(w io.Writer) {
					fmt.Fprintln(w, "History cleared.")
				})
			})
		},
	})

	cmd.AddCommand(newHistoryExportCommand(r))
	return cmd
}

func newHistoryExportCommand(r *runner) *cobra.Command {
	var as, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as csv, xlsx or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(_ context.Context, a *app.App, out *OutputFormatter) error {
				format, err := reports.ParseFormat(as)
				if err != nil {
					return out.Fail(ExitFailure, err)
				}

				records := a.History.List()
				if outPath == "" || outPath == "-" {
					return history.Export(cmd.OutOrStdout(), format, records)
				}

				if err := writeExport(outPath, format, records); err != nil {
					return out.Fail(ExitCommandError, err)
				}
				return out.Success(map[string]any{"path": outPath, "records": len(records)}, func(w io.Writer) {
					fmt.Fprintf(w, "Wrote %d conversions to %s\n", len(records), outPath)
				})
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", string(reports.FormatCSV), "export format (csv|xlsx|pdf)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func writeExport(path string, format reports.Format, records []history.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewError(errors.ErrCodeExportFailed, "failed to create "+path+": "+err.Error(), err)
	}
	if err := history.Export(f, format, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewError(errors.ErrCodeExportFailed, "failed to write "+path+": "+err.Error(), err)
	}
	return nil
}
