package migration

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/landedcost/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}

func openSQLite(t *testing.T, path string) *gorm.DB {
	t.Helper()

	dialector, err := db.Dialect(db.Config{Type: db.TypeSQLite, SQLitePath: path})
	require.NoError(t, err)
	conn, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestApply_AutoMigratesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landedcost.db")

	conn := openSQLite(t, path)
	require.NoError(t, Apply(conn, db.TypeSQLite))
	// idempotent
	require.NoError(t, Apply(conn, db.TypeSQLite))

	// a restart re-migrates the existing file
	conn = openSQLite(t, path)
	require.NoError(t, Apply(conn, db.TypeSQLite))

	for _, table := range []string{"containers", "skus", "invoices", "invoice_lines", "tariff_codes", "tariff_rate_details", "cost_pools", "allocations"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("cost_pools", "idx_cost_pools_system_key"))
}
