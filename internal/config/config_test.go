package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"RPC_URL", "DATABASE_URL", "REDIS_URL", "QUORUM_THRESHOLD", "SUMMARY_TTL", "REFRESH_WORKERS", "REFRESH_CRON", "DEBUG", "HTTP_ADDR", "WS_PATH"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "/websocket", cfg.WSPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10.0, cfg.QuorumThreshold)
	assert.Equal(t, 30*time.Minute, cfg.SummaryTTL)
	assert.Equal(t, 4, cfg.RefreshWorkers)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Empty(t, cfg.DBDialect)
	assert.False(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://gov:secret@db:5432/gov")
	t.Setenv("QUORUM_THRESHOLD", "2500.5")
	t.Setenv("SUMMARY_TTL", "5m")
	t.Setenv("REFRESH_WORKERS", "-3")
	t.Setenv("DEBUG", "yes")

	cfg := Load()
	assert.Equal(t, DatabaseSchemePostgres, cfg.DBDialect)
	assert.Equal(t, "postgresql://gov:secret@db:5432/gov", cfg.DBDsn)
	assert.Equal(t, 2500.5, cfg.QuorumThreshold)
	assert.Equal(t, 2500.5, cfg.Policy().QuorumThreshold)
	assert.Equal(t, 3, cfg.Policy().TopVoters)
	assert.Equal(t, 5*time.Minute, cfg.SummaryTTL)
	assert.Equal(t, 4, cfg.RefreshWorkers)
	assert.True(t, cfg.Debug)
}

func TestParseDatabaseURL(t *testing.T) {
	_, _, err := parseDatabaseURL("mysql://root@localhost/gov")
	require.Error(t, err)

	dialect, dsn, err := parseDatabaseURL("postgres://u:p@h/db")
	require.NoError(t, err)
	assert.Equal(t, DatabaseSchemePostgres, dialect)
	assert.Equal(t, "postgres://u:p@h/db", dsn)
}

func TestDebugString_MasksSecrets(t *testing.T) {
	cfg := Config{
		DBDialect: DatabaseSchemePostgres,
		DBDsn:     "postgres://gov:secret@db:5432/gov",
		RedisURL:  "redis://:hunter2@cache:6379/0",
	}
	s := cfg.DebugString()
	assert.NotContains(t, s, "secret")
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "gov@db:5432")

	assert.Equal(t, "host=db password=*** user=gov", maskDSN(DatabaseSchemePostgres, "host=db password=x user=gov"))
}
