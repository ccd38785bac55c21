package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noFile(t *testing.T) *string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "missing.yaml")
	require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0o600))
	return &p
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(Overrides{ConfigPath: noFile(t)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SOCKET_AUTH_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(Overrides{ConfigPath: noFile(t)})
	require.NoError(t, err)

	require.Equal(t, "s3cret", cfg.JWTSecret)
	require.Equal(t, "sqlite3", cfg.Database.Driver)
	require.Equal(t, "/socket.io/", cfg.Socket.Path)
	require.Equal(t, 2*time.Second, cfg.Socket.AuthTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.True(t, cfg.Cluster.Enabled())
}

func TestLoadFileThenOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("jwt_secret: from-file\naddr: \":9000\"\ndatabase:\n  driver: pgx\n  dsn: postgres://localhost/studyhall\n")
	require.NoError(t, os.WriteFile(p, body, 0o600))

	addr := ":7000"
	cfg, err := Load(Overrides{ConfigPath: &p, Addr: &addr})
	require.NoError(t, err)

	require.Equal(t, "from-file", cfg.JWTSecret)
	require.Equal(t, ":7000", cfg.Addr)
	require.Equal(t, "pgx", cfg.Database.Driver)
	require.False(t, cfg.Cluster.Enabled())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load(Overrides{ConfigPath: noFile(t)})
	require.Error(t, err)
}

func TestLoadEmptyEnvKeepsFileValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("jwt_secret: from-file\naddr: \":9000\"\nlog:\n  level: warn\n")
	require.NoError(t, os.WriteFile(p, body, 0o600))

	cfg, err := Load(Overrides{ConfigPath: &p})
	require.NoError(t, err)

	require.Equal(t, "from-file", cfg.JWTSecret)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "warn", cfg.Log.Level)
}
