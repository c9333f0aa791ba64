package cli

import (
	"github.com/spf13/cobra"

	"github.com/GlebRadaev/wholesale/internal/pg"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context(), "migrate")
			if err != nil {
				return err
			}
			defer e.Close()

			if err := pg.RunMigrations(e.pool); err != nil {
				return err
			}
			e.log.Info().Msg("migrations applied")
			return nil
		},
	}
}
