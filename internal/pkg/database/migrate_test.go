package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Ordered(t *testing.T) {
	for _, dialect := range []string{MigrationsPostgres, MigrationsSQLite} {
		migrations, err := loadMigrations(dialect)
		require.NoError(t, err)
		require.NotEmpty(t, migrations)
		assert.Equal(t, "0001_init", migrations[0].version)
		assert.Contains(t, migrations[0].sql, "uk_payroll_records_employee_period")
	}
}

func TestMigrateSQLite_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateSQLite(ctx, db))
	require.NoError(t, MigrateSQLite(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'payroll_records'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "payroll_records", name)
}
