package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
jwt:
  secret: file-secret
database:
  path: /tmp/finance-test.db
app:
  org_name: Test Org
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 168, cfg.JWT.ExpireHours)
	assert.Equal(t, 30, cfg.App.PageSize)
	assert.Equal(t, "Test Org", cfg.App.OrgName)
	assert.False(t, cfg.Server.Production())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/finance")
	t.Setenv("APP_ENV", "production")
	t.Setenv("FP_SERVER_PORT", "9300")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 9300, cfg.Server.Port)
	assert.True(t, cfg.Server.Production())
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing secret")
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:   ServerConfig{Port: 8080},
		JWT:      JWTConfig{Secret: "s"},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "x.db"},
	}
	require.NoError(t, base.Validate())

	badPort := base
	badPort.Server.Port = 70000
	assert.ErrorContains(t, badPort.Validate(), "invalid port")

	badDriver := base
	badDriver.Database.Driver = "mysql"
	assert.ErrorContains(t, badDriver.Validate(), "unknown database driver")

	noURL := base
	noURL.Database.Driver = DriverPostgres
	assert.ErrorContains(t, noURL.Validate(), "database.url")
}
