package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
)

func newServeCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the exchange rates API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := a.Server().Run(ctx); err != nil {
					return WrapExitError(ExitCommandError, "server failed", err)
				}
				return nil
			})
		},
	}
}
