package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/combatsim/internal/model"
	"github.com/OCAP2/combatsim/pkg/gamedata"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "sim")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "combatsim")

	assert.Equal(t,
		"host=db.internal port=6543 user=sim password=secret dbname=combatsim sslmode=disable",
		PostgresDSN())
}

func TestSqliteSetupAndDump(t *testing.T) {
	m := NewManager(zerolog.Nop())
	dir := t.TempDir()

	db, err := m.GetSqliteDB(filepath.Join(dir, "live.db"))
	require.NoError(t, err)

	require.NoError(t, m.Setup(db))
	for _, tbl := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(tbl), "missing table for %T", tbl)
	}

	var info model.SimInfo
	require.NoError(t, db.First(&info).Error)
	assert.Equal(t, gamedata.CatalogVersion, info.CatalogVersion)

	// a second setup keeps the single info row
	require.NoError(t, m.Setup(db))
	var count int64
	db.Model(&model.SimInfo{}).Count(&count)
	assert.Equal(t, int64(1), count)

	dump := filepath.Join(dir, "dump.db")
	require.NoError(t, m.DumpMemoryToDisk(db, dump))
	_, err = os.Stat(dump)
	require.NoError(t, err)

	// existing dumps are replaced
	require.NoError(t, m.DumpMemoryToDisk(db, dump))
}

func TestDumpMemoryToDisk_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.DumpMemoryToDisk(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}
