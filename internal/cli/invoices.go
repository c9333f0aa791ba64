package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GlebRadaev/wholesale/internal/service/invoiceservice"
)

func newInvoicesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance",
	}

	var limit uint32
	overdue := &cobra.Command{
		Use:   "mark-overdue",
		Short: "Move unpaid invoices past their due date to OVERDUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context(), "invoices")
			if err != nil {
				return err
			}
			defer e.Close()

			svc := invoiceservice.New(e.repos.InvoiceRepo, e.repos.AuditRepo, e.repos.TxManager)
			moved, err := svc.MarkOverdue(cmd.Context(), limit)
			if err != nil {
				return err
			}
			e.log.Info().Int("moved", moved).Msg("overdue sweep finished")
			fmt.Fprintf(cmd.OutOrStdout(), "%d invoices marked overdue\n", moved)
			return nil
		},
	}
	overdue.Flags().Uint32Var(&limit, "limit", 500, "maximum invoices to move in one run")

	cmd.AddCommand(overdue)
	return cmd
}
