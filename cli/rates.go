package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
)

func newRatesCommand(r *runner) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the current exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				load := a.Tracker.Load
				if refresh {
					load = a.Tracker.Refresh
				}
				if err := load(ctx); err != nil {
					return out.Fail(ExitFailure, err)
				}

				snapshot := a.Tracker.State().Snapshot
				return out.Success(snapshot, func(w io.Writer) {
					fmt.Fprintf(w, "Base: %s (source %s)\n", snapshot.Base, snapshot.Source)
					codes := lo.Keys(snapshot.Rates)
					sort.Strings(codes)
					for _, code := range codes {
						fmt.Fprintf(w, "%s\t%s\n", code, strconv.FormatFloat(snapshot.Rates[code], 'f', -1, 64))
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the rate cache")
	return cmd
}
