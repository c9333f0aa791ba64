package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GlebRadaev/wholesale/internal/service"
)

func newSettlementCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlement",
		Short: "Transfer settlement",
	}

	runOnce := &cobra.Command{
		Use:   "run-once",
		Short: "Check one batch of unsettled transfers with the bank gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context(), "settlement")
			if err != nil {
				return err
			}
			defer e.Close()

			if !e.cfg.Gateway.Enabled() {
				return fmt.Errorf("bank gateway credentials are not configured")
			}
			srv, err := service.New(e.cfg, e.repos)
			if err != nil {
				return err
			}
			defer srv.Reconciler.Close()

			checked, err := srv.Reconciler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			e.log.Info().Int("checked", checked).Msg("settlement pass finished")
			fmt.Fprintf(cmd.OutOrStdout(), "%d payments checked\n", checked)
			return nil
		},
	}

	cmd.AddCommand(runOnce)
	return cmd
}
