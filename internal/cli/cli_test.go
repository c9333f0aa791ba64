package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/wholesale/internal/domain"
)

func TestNewRootCmd_Commands(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})

	for _, path := range [][]string{
		{"migrate"},
		{"audit", "list"},
		{"invoices", "mark-overdue"},
		{"settlement", "run-once"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	overdue, _, err := root.Find([]string{"invoices", "mark-overdue"})
	require.NoError(t, err)
	limit := overdue.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "500", limit.DefValue)
}

func TestAuditList_RejectsBadArgumentsBeforeConnecting(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown type",
			args:    []string{"audit", "list", "--type", "WIDGET", "--id", "1"},
			wantErr: `unknown entity type "WIDGET"`,
		},
		{
			name:    "missing id",
			args:    []string{"audit", "list", "--type", "ORDER"},
			wantErr: "--id must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRootCmd(&bytes.Buffer{})
			root.SetArgs(tt.args)

			err := root.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteEntries(t *testing.T) {
	var buf bytes.Buffer
	err := writeEntries(&buf, []domain.AuditLogEntry{
		{ID: 1, Action: domain.AuditInvoiceOverdue, EntityType: domain.EntityInvoice, EntityID: 9, Metadata: json.RawMessage(`{"newStatus":"OVERDUE"}`)},
		{ID: 2, Action: domain.AuditPaymentReversed, EntityType: domain.EntityInvoice, EntityID: 9, Metadata: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INVOICE_OVERDUE", first["action"])
	assert.Nil(t, first["actorId"])
}
