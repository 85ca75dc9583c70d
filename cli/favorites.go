package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/infigaming-com/go-fxconvert/app"
	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/favorites"
)

type favoritesResult struct {
	Favorites []string `json:"favorites"`
	Result    string   `json:"result,omitempty"`
}

func newFavoritesCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List or change favorite currencies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorites, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withFavorites(cmd, func(_ *app.App, _ *favorites.Controller, _ *OutputFormatter) (string, error) {
				return "", nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <code>",
		Short: "Add a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			return r.withFavorites(cmd, func(a *app.App, c *favorites.Controller, _ *OutputFormatter) (string, error) {
				store := c.Store()
				switch {
				case !a.Registry().IsSupported(code):
					return "", errors.NewError(errors.ErrCodeUnsupportedCurrency, fmt.Sprintf("unsupported currency %q", code), nil)
				case store.Contains(code):
					return "", errors.NewError(errors.ErrCodeDuplicateFavorite, code+" is already a favorite", nil)
				case !store.Add(code):
					return "", errors.NewError(errors.ErrCodeFavoritesFull, favorites.LimitAdvisory, nil)
				}
				return favorites.Added.String(), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <code>",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			return r.withFavorites(cmd, func(_ *app.App, c *favorites.Controller, _ *OutputFormatter) (string, error) {
				if !c.IsFavorite(code) {
					return "", nil
				}
				c.Store().Remove(code)
				return favorites.Removed.String(), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <code>",
		Short: "Add or remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			return r.withFavorites(cmd, func(_ *app.App, c *favorites.Controller, out *OutputFormatter) (string, error) {
				res := c.ToggleFavorite(code)
				out.Notice(c.LimitMessage())
				return res.String(), nil
			})
		},
	})

	return cmd
}

// withFavorites runs fn and prints the resulting set.
func (r *runner) withFavorites(cmd *cobra.Command, fn func(a *app.App, c *favorites.Controller, out *OutputFormatter) (string, error)) error {
	return r.with(cmd, func(_ context.Context, a *app.App, out *OutputFormatter) error {
		c := favorites.NewController(a.Favorites)
		out.Notice(c.StorageMessage())

		result, err := fn(a, c, out)
		if err != nil {
			return out.Fail(ExitFailure, err)
		}

		res := favoritesResult{Favorites: c.Favorites(), Result: result}
		return out.Success(res, func(w io.Writer) {
			if len(res.Favorites) == 0 {
				fmt.Fprintln(w, "No favorites yet.")
				return
			}
			fmt.Fprintln(w, strings.Join(res.Favorites, " "))
		})
	})
}
