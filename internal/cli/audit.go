package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GlebRadaev/wholesale/internal/domain"
	"github.com/GlebRadaev/wholesale/internal/dto"
	"github.com/GlebRadaev/wholesale/internal/service/auditservice"
)

// operator reads with admin rights; the CLI is only reachable with database
// credentials.
var operator = domain.Actor{Role: domain.RoleAdmin}

func newAuditCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}

	var (
		entityType string
		entityID   int
	)
	list := &cobra.Command{
		Use:     "list",
		Short:   "Print the audit trail of one entity as JSON lines",
		Example: "  ledgerctl audit list --type ORDER --id 42",
		Args:    cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if _, ok := domain.ParseEntityType(entityType); !ok {
				return fmt.Errorf("unknown entity type %q", entityType)
			}
			if entityID <= 0 {
				return fmt.Errorf("--id must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context(), "audit")
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := auditservice.New(e.repos.AuditRepo).ListByEntity(cmd.Context(), operator, entityType, entityID)
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().StringVarP(&entityType, "type", "t", "", "entity type (ORDER, INVOICE, PAYMENT, EXTERNAL_CUSTOMER, FUNDING_SOURCE)")
	list.Flags().IntVar(&entityID, "id", 0, "entity id")

	cmd.AddCommand(list)
	return cmd
}

func writeEntries(w io.Writer, entries []domain.AuditLogEntry) error {
	enc := json.NewEncoder(w)
	for _, entry := range dto.NewAuditEntries(entries) {
		if err := enc.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}
