package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildLogger(t *testing.T) {
	l, err := buildLogger(safeher.LoggingConfig{Level: "warn"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = buildLogger(safeher.LoggingConfig{Level: "warn"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = buildLogger(safeher.LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)
}

func TestDescribeMigration(t *testing.T) {
	assert.Equal(t, "Schema is up to date", describeMigration(store.MigrationResult{}))
	got := describeMigration(store.MigrationResult{
		ColumnsAdded:    []string{"reports.severity", "reports.report_number"},
		NumbersAssigned: 3,
	})
	assert.Equal(t, "Migrated (added columns: reports.severity, reports.report_number; assigned 3 report numbers)", got)
}

func TestMigrateAndExportCommands(t *testing.T) {
	dir := t.TempDir()
	cfg = safeher.DefaultConfig()
	cfg.Database.URL = "sqlite:///" + filepath.Join(dir, "safeher.db")
	logger = zap.NewNop()

	var out bytes.Buffer
	migrateCmd.SetOut(&out)
	migrateCmd.SetContext(context.Background())
	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
	assert.Contains(t, out.String(), "Schema is up to date")

	exportOut = filepath.Join(dir, "reports.csv")
	var stderr bytes.Buffer
	exportCmd.SetErr(&stderr)
	exportCmd.SetContext(context.Background())
	require.NoError(t, exportCmd.RunE(exportCmd, nil))
	assert.Contains(t, stderr.String(), "Exported 0 reports")

	data, err := os.ReadFile(exportOut)
	require.NoError(t, err)
	header := strings.SplitN(string(data), "\n", 2)[0]
	assert.Equal(t, "ID,User Email,Title,Category,Status,Description,Evidence,Created At,Updated At", strings.TrimSpace(header))
}

func TestSeedAdminWithEmbeddedRedis(t *testing.T) {
	dir := t.TempDir()
	cfg = safeher.DefaultConfig()
	cfg.Database.URL = "sqlite:///" + filepath.Join(dir, "safeher.db")
	cfg.Storage.Dir = filepath.Join(dir, "uploads")
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Redis.Embedded = true
	logger = zap.NewNop()

	adminEmail, adminPassword, adminName = "Root@Example.com", "correct horse", ""

	var out bytes.Buffer
	seedAdminCmd.SetOut(&out)
	seedAdminCmd.SetContext(context.Background())
	require.NoError(t, seedAdminCmd.RunE(seedAdminCmd, nil))
	assert.Contains(t, out.String(), "Created admin root@example.com")

	out.Reset()
	require.NoError(t, seedAdminCmd.RunE(seedAdminCmd, nil))
	assert.Contains(t, out.String(), "already exists (role admin)")
}
