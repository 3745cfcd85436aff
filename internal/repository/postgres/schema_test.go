package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marshaltudu14/fieldforce-auth/migrations"
)

// The repositories and the schema migrations must agree on column names; a
// drifted name only surfaces at runtime as an undefined-column error, which
// pgxmock-based tests cannot catch.
func TestMigrationsDefineQueriedColumns(t *testing.T) {
	tests := []struct {
		file    string
		columns []string
	}{
		{
			file:    "000001_create_employees.up.sql",
			columns: strings.Split(employeeColumns, ", "),
		},
		{
			file: "000002_create_refresh_tokens.up.sql",
			columns: []string{
				"id", "employee_id", "token_hash", "expires_at", "created_at", "revoked_at",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			ddl, err := migrations.FS.ReadFile(tt.file)
			require.NoError(t, err)
			for _, col := range tt.columns {
				require.Contains(t, string(ddl), col,
					"column %q is queried but the migration does not define it", col)
			}
		})
	}
}
