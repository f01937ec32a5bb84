package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, "./data/storage.json", c.Storage.Path)
	assert.Equal(t, 5242880, c.Storage.QuotaBytes)
	assert.Equal(t, "sqlite", c.Backup.Driver)
	assert.Equal(t, 10, c.Backup.Retention)
	assert.Equal(t, ":8080", c.ServerAddr)
	assert.Equal(t, logrus.InfoLevel, c.Logger().GetLevel())
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BACKUP_DRIVER=mysql\nBACKUP_RETENTION=3\nLOG_FORMAT=json\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("BACKUP_DRIVER")
		os.Unsetenv("BACKUP_RETENTION")
		os.Unsetenv("LOG_FORMAT")
	})

	n, err := LoadEnv([]string{envFile, filepath.Join(dir, ".env.local")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)
	assert.Equal(t, "mysql", c.Backup.Driver)
	assert.Equal(t, 3, c.Backup.Retention)
	assert.IsType(t, &logrus.JSONFormatter{}, c.Logger().Formatter)
}

func TestEnvironmentOverridesAndValidation(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "STORAGE_BACKEND")

	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("BACKUP_RETENTION", "0")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "BACKUP_RETENTION")

	t.Setenv("BACKUP_RETENTION", "10")
	t.Setenv("BACKUP_DRIVER", "mongo")
	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)
	assert.Equal(t, "redis", c.StorageOptions().Backend)
}

func TestLogPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dealercrm.log")
	t.Setenv("LOG_PATH", path)
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	c.Logger().Info("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Equal(t, logrus.DebugLevel, c.LogrusLogLevel())
}
