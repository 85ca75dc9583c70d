// Package cli is the fxconvert command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
	"github.com/infigaming-com/go-fxconvert/config"
	"github.com/infigaming-com/go-fxconvert/util"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	EnvFile string
}

// AppFactory opens the context a command runs against. The returned func
// releases it.
type AppFactory func(ctx context.Context, opts *RootOptions) (*app.App, func(), error)

// DefaultAppFactory loads the config and installs the production logger.
func DefaultAppFactory(ctx context.Context, opts *RootOptions) (*app.App, func(), error) {
	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, err
	}

	lg, undo := util.NewLogger(cfg.LogLevel)
	a, err := app.New(ctx, lg, cfg)
	if err != nil {
		undo()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		undo()
	}, nil
}

func NewRootCommand(factory AppFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fxconvert",
		Short: "Convert currencies with live exchange rates",
		Long: `Convert amounts between currencies using live exchange rates.

Conversions are kept in a short history and up to five favorite currencies
are remembered. Both are stored in the configured key-value store and
shared with every other fxconvert process using the same store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.Format)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)")

	r := &runner{opts: opts, factory: factory}
	cmd.AddCommand(newConvertCommand(r))
	cmd.AddCommand(newRatesCommand(r))
	cmd.AddCommand(newFavoritesCommand(r))
	cmd.AddCommand(newHistoryCommand(r))
	cmd.AddCommand(newCurrenciesCommand(r))
	cmd.AddCommand(newServeCommand(r))

	return cmd
}

func validateFormat(format string) error {
	if !lo.Contains(ValidFormats, format) {
		return NewExitError(ExitUsageError, fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
	}
	return nil
}

type runner struct {
	opts    *RootOptions
	factory AppFactory
}

// with opens the app for the duration of fn.
func (r *runner) with(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, release, err := r.factory(ctx, r.opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer release()

	return fn(ctx, a, &OutputFormatter{
		Format:    r.opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	})
}
