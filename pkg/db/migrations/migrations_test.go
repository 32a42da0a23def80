package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/db"
)

func TestAll_AppliesAndRollsBack(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.OpenMigrated(ctx, filepath.Join(t.TempDir(), "storage.db"), All())
	require.NoError(t, err)
	defer sqlDB.Close()

	var tables []string
	require.NoError(t, sqlDB.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='compositions'"))
	assert.Equal(t, []string{"compositions"}, tables)

	var indexes []string
	require.NoError(t, sqlDB.Select(&indexes,
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name='compositions' AND name LIKE 'idx_%' ORDER BY name"))
	assert.Equal(t, []string{"idx_compositions_created_at", "idx_compositions_project_type"}, indexes)

	migrator, err := db.NewMigrator(sqlDB, All())
	require.NoError(t, err)

	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	version, err := migrator.Down(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20261001090001), version)

	version, err = migrator.Down(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20261001090000), version)

	tables = nil
	require.NoError(t, sqlDB.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='compositions'"))
	assert.Empty(t, tables)
}
