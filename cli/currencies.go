package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
	"github.com/infigaming-com/go-fxconvert/currency"
)

type currencyEntry struct {
	currency.Currency
	Favorite bool `json:"favorite"`
}

func newCurrenciesCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "currencies",
		Short: "List supported currencies, favorites first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(_ context.Context, a *app.App, out *OutputFormatter) error {
				favs, rest := a.Registry().Ordered(a.Favorites.List())

				entries := make([]currencyEntry, 0, len(favs)+len(rest))
				for _, c := range favs {
					entries = append(entries, currencyEntry{Currency: c, Favorite: true})
				}
				for _, c := range rest {
					entries = append(entries, currencyEntry{Currency: c})
				}

				return out.Success(entries, func(w io.Writer) {
					for _, e := range entries {
						star := " "
						if e.Favorite {
							star = "*"
						}
						fmt.Fprintf(w, "%s %s  %-4s %s\n", star, e.Code, e.Symbol, e.Name)
					}
				})
			})
		},
	}
}
