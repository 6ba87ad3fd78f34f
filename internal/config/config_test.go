package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("AUTO_COMPLETE_DELAY", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, 5*time.Minute, cfg.AutoCompleteDelay)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoad_MySQLPortAndDurations(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_PORT", "")
	t.Setenv("AUTO_COMPLETE_DELAY", "90s")
	t.Setenv("AUTO_COMPLETE_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 90*time.Second, cfg.AutoCompleteDelay)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "@tcp(")
}

func TestDSN_UnsupportedDriver(t *testing.T) {
	cfg := &Config{DBDriver: "mssql"}
	_, err := cfg.DSN()
	assert.Error(t, err)
}

func TestLoad_SessionSecure(t *testing.T) {
	t.Setenv("SESSION_SECURE", "true")
	assert.True(t, Load().SessionSecure)

	t.Setenv("SESSION_SECURE", "maybe")
	assert.False(t, Load().SessionSecure)
}
