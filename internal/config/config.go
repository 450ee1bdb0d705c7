package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"governance-analytics/internal/rollup"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"

	defaultRefreshCron = "0 */5 * * * *"
)

type Config struct {
	RPCURL    string // CometBFT node hosting the governance app; empty disables chain access
	WSPath    string
	RedisURL  string // optional: summary cache backend, falls back to the database
	DBDialect string // postgres only
	DBDsn     string // DSN string passed to GORM driver
	HTTPAddr  string

	LogLevel    string
	LogEncoding string
	Debug       bool

	QuorumThreshold  float64
	SummaryTTL       time.Duration
	SummaryRetention time.Duration // redis key expiry, 0 keeps summaries forever
	RefreshCron      string
	RefreshWorkers   int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		RPCURL:      os.Getenv("RPC_URL"),
		WSPath:      getenv("WS_PATH", "/websocket"),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: getenv("LOG_ENCODING", "json"),
		Debug:       getenvBool("DEBUG", false),

		QuorumThreshold:  getenvFloat("QUORUM_THRESHOLD", rollup.DefaultQuorumThreshold),
		SummaryTTL:       getenvDuration("SUMMARY_TTL", rollup.StaleAfter),
		SummaryRetention: getenvDuration("SUMMARY_RETENTION", 0),
		RefreshCron:      getenv("REFRESH_CRON", defaultRefreshCron),
		RefreshWorkers:   getenvInt("REFRESH_WORKERS", 4),
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	return cfg
}

// Policy returns the rollup thresholds this deployment is configured with.
func (c Config) Policy() rollup.Policy {
	p := rollup.DefaultPolicy()
	p.QuorumThreshold = c.QuorumThreshold
	return p
}

func (c Config) WSURL() string {
	// cometbft http client expects a separate ws endpoint path
	return c.WSPath
}

func (c Config) String() string {
	return fmt.Sprintf("rpc=%s ws_path=%s db=%s http=%s", c.RPCURL, c.WSPath, c.DBDialect, c.HTTPAddr)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"rpc=%s ws_path=%s db=%s dsn=%s redis=%s http=%s quorum=%g ttl=%s refresh=%q",
		c.RPCURL,
		c.WSPath,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
		maskURL(c.RedisURL),
		c.HTTPAddr,
		c.QuorumThreshold,
		c.SummaryTTL,
		c.RefreshCron,
	)
}

func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
