package cli

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/infigaming-com/go-fxconvert/app"
	"github.com/infigaming-com/go-fxconvert/converter"
	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/rate"
)

type conversionResult struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Amount      string  `json:"amount"`
	Result      float64 `json:"result"`
	DisplayRate string  `json:"rate"`
	Source      string  `json:"source,omitempty"`
}

// negativeNumber matches amounts such as -1 or -0.5.
var negativeNumber = regexp.MustCompile(`^-(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

func newConvertCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount and record it in history",
		// Flags are parsed in RunE so that a negative amount reaches amount
		// validation instead of failing as an unknown shorthand flag.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, raw []string) error {
			args, err := parseConvertArgs(cmd, raw)
			if err != nil {
				return err
			}
			if args == nil {
				return cmd.Help()
			}
			if err := validateFormat(r.opts.Format); err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				return runConvert(ctx, a, out, args[0], strings.ToUpper(args[1]), strings.ToUpper(args[2]))
			})
		},
	}
}

// parseConvertArgs parses the global flags out of raw and returns the three
// positional arguments. Negative numbers are kept as arguments. A nil slice
// with a nil error means help was requested.
func parseConvertArgs(cmd *cobra.Command, raw []string) ([]string, error) {
	masked := make([]string, len(raw))
	numbers := map[string]string{}
	for i, arg := range raw {
		masked[i] = arg
		if negativeNumber.MatchString(arg) {
			key := fmt.Sprintf("\x00%d", i)
			numbers[key] = arg
			masked[i] = key
		}
	}

	// InheritedFlags merges the root's persistent flags into cmd.Flags().
	cmd.InheritedFlags()
	flags := cmd.Flags()
	if err := flags.Parse(masked); err != nil {
		if err == pflag.ErrHelp {
			return nil, nil
		}
		return nil, NewExitError(ExitUsageError, err.Error())
	}
	if help, _ := flags.GetBool("help"); help {
		return nil, nil
	}

	args := flags.Args()
	if len(args) != 3 {
		return nil, NewExitError(ExitUsageError, fmt.Sprintf("accepts 3 arg(s), received %d", len(args)))
	}
	for i, arg := range args {
		if n, ok := numbers[arg]; ok {
			args[i] = n
		}
	}
	return args, nil
}

func runConvert(ctx context.Context, a *app.App, out *OutputFormatter, amount, from, to string) error {
	for _, code := range []string{from, to} {
		if !a.Registry().IsSupported(code) {
			return out.Fail(ExitFailure, errors.NewError(errors.ErrCodeUnsupportedCurrency, fmt.Sprintf("unsupported currency %q", code), nil))
		}
	}
	if from == to {
		return out.Fail(ExitFailure, errors.NewError(errors.ErrCodeUnsupportedCurrency, "from and to must be different currencies", nil))
	}

	if err := a.Tracker.Load(ctx); err != nil {
		return out.Fail(ExitFailure, err)
	}

	session := a.NewSession(converter.WithInitial(amount, from, to))
	defer session.Close()

	st := session.State()
	if st.ValidationError != "" {
		return out.Fail(ExitFailure, errors.NewError(errors.ErrCodeInvalidAmount, st.ValidationError, nil))
	}
	if st.Result == nil {
		return out.Fail(ExitFailure, errors.NewError(errors.ErrCodeRateMissing, fmt.Sprintf("no rate for %s to %s", from, to), nil))
	}

	res := conversionResult{
		From:        st.From,
		To:          st.To,
		Amount:      strings.TrimSpace(st.Amount),
		Result:      *st.Result,
		DisplayRate: st.DisplayRate,
	}
	if st.Rates.Snapshot != nil {
		res.Source = st.Rates.Snapshot.Source
	}
	if res.Source == rate.MockSourceName {
		out.Notice("Live rates are unavailable; using built-in sample rates.")
	}

	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s = %s %s\n", res.Amount, res.From, st.DisplayResult, res.To)
		fmt.Fprintf(w, "1 %s = %s %s\n", res.From, res.DisplayRate, res.To)
	})
}
