package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadsSharedFlagDefaults(t *testing.T) {
	const doc = `
provider = "postgres"
batch_rows = 500
consistent_snapshot = true
disable_fk_checks = false
tables = ["a", "b"]
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Provider)
	assert.Equal(t, 500, cfg.BatchRows)
	assert.True(t, cfg.ConsistentSnapshot)
	require.NotNil(t, cfg.DisableFKChecks)
	assert.False(t, *cfg.DisableFKChecks)
	assert.Equal(t, []string{"a", "b"}, cfg.Tables)
}

func TestParseLeavesDisableFKChecksNilWhenAbsent(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`provider = "mysql"`))
	require.NoError(t, err)
	assert.Nil(t, cfg.DisableFKChecks)
}

func TestLoadReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrasquiel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`provider = "mssql"`+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mssql", cfg.Provider)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
