package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	for name := range names {
		if base, ok := strings.CutSuffix(name, ".up.sql"); ok {
			assert.True(t, names[base+".down.sql"], "missing down migration for %s", name)
		}
	}
}

func TestApplyAutoMigratesNonPostgres(t *testing.T) {
	db := dbtest.Open(t)

	require.NoError(t, Apply(db, "sqlite"))

	for _, table := range []string{
		"customers", "customer_sites", "daily_volumes", "gccs", "gcc_list_items",
		"gcc_approved_by_admins", "gcc_approved_by_customers", "invoice_advices",
		"invoice_advice_list_items", "invoice_advice_approvals", "invoices",
		"ngml_accounts", "letter_templates", "audit_logs",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
