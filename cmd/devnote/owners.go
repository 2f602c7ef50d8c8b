package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/repository"
)

func newOwnersCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List owners with stored notebooks",
		Long:  `Print every owner in the database with the time their notes were last written.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer ws.Close()

			owners, err := ws.db.Owners(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, owner := range owners {
				updated := "-"
				ts, err := ws.db.UpdatedAt(cmd.Context(), owner, repository.KeyNotes)
				switch {
				case err == nil:
					updated = ts.UTC().Format(time.RFC3339)
				case !errors.Is(err, apperror.ErrNotFound):
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", owner, updated)
			}
			return tw.Flush()
		},
	}
}
