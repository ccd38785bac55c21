package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr           string   `koanf:"addr" validate:"required"`
	Debug          bool     `koanf:"debug"`
	JWTSecret      string   `koanf:"jwt_secret" validate:"required"`
	AllowedOrigins []string `koanf:"allowed_origins" validate:"min=1"`

	Database  DatabaseConfig  `koanf:"database"`
	Socket    SocketConfig    `koanf:"socket"`
	Cluster   ClusterConfig   `koanf:"cluster"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

// DatabaseConfig selects the SQL driver and its data source.
type DatabaseConfig struct {
	// Driver is either "sqlite3" or "pgx".
	Driver string `koanf:"driver" validate:"oneof=sqlite3 pgx"`
	DSN    string `koanf:"dsn" validate:"required"`
}

// SocketConfig tunes the Socket.IO endpoint.
type SocketConfig struct {
	Path         string        `koanf:"path" validate:"required,startswith=/"`
	AuthTimeout  time.Duration `koanf:"auth_timeout" validate:"gt=0"`
	PingInterval time.Duration `koanf:"ping_interval" validate:"gt=0"`
	PingTimeout  time.Duration `koanf:"ping_timeout" validate:"gt=0"`
	// AllowAnonymous lets sockets without any credential connect as
	// anonymous sessions. Present but invalid credentials are still rejected.
	AllowAnonymous bool `koanf:"allow_anonymous"`
}

// ClusterConfig enables cross-node room broadcasts over NATS. An empty URL
// keeps the server in single-node mode.
type ClusterConfig struct {
	NATSURL string `koanf:"nats_url"`
	Subject string `koanf:"subject" validate:"required"`
}

// Enabled reports whether a NATS URL was configured.
func (c ClusterConfig) Enabled() bool {
	return c.NATSURL != ""
}

// RateLimitConfig bounds requests and socket handshakes per client address.
type RateLimitConfig struct {
	RPS      float64       `koanf:"rps" validate:"gte=0"`
	Burst    int           `koanf:"burst" validate:"gte=0"`
	TTL      time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxPeers int64         `koanf:"max_peers" validate:"gt=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Overrides optionally overrides values from the file and environment.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr        *string
	DatabaseDSN *string
	JWTSecret   *string
	Debug       *bool
	ConfigPath  *string
}

// ConfigPathEnvVar is the environment variable pointing at a YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are probed in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

func defaultConfig() *Config {
	return &Config{
		Addr:           ":3005",
		AllowedOrigins: []string{"*"},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./studyhall.db",
		},
		Socket: SocketConfig{
			Path:         "/socket.io/",
			AuthTimeout:  5 * time.Second,
			PingInterval: 25 * time.Second,
			PingTimeout:  20 * time.Second,
		},
		Cluster: ClusterConfig{
			Subject: "studyhall.rooms",
		},
		RateLimit: RateLimitConfig{
			RPS:      20,
			Burst:    40,
			TTL:      10 * time.Minute,
			MaxPeers: 100_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// envMappings maps environment variables to config paths. Unlisted variables
// are ignored.
var envMappings = map[string]string{
	"addr":                   "addr",
	"debug":                  "debug",
	"jwt_secret":             "jwt_secret",
	"allowed_origins":        "allowed_origins",
	"database_driver":        "database.driver",
	"database_url":           "database.dsn",
	"database_path":          "database.dsn",
	"socket_path":            "socket.path",
	"socket_auth_timeout":    "socket.auth_timeout",
	"socket_ping_interval":   "socket.ping_interval",
	"socket_ping_timeout":    "socket.ping_timeout",
	"socket_allow_anonymous": "socket.allow_anonymous",
	"nats_url":               "cluster.nats_url",
	"nats_subject":           "cluster.subject",
	"rate_limit_rps":         "ratelimit.rps",
	"rate_limit_burst":       "ratelimit.burst",
	"rate_limit_ttl":         "ratelimit.ttl",
	"log_level":              "log.level",
	"log_format":             "log.format",
}

// envValue maps a variable to its config path. Unmapped and empty variables
// are skipped so they never clobber file values.
func envValue(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return envMappings[strings.ToLower(key)], value
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then applies any explicit overrides and validates the result.
func Load(overrides Overrides) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(overrides.ConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// PORT is honoured for platforms that only hand out a port number.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ADDR") == "" {
		if err := k.Set("addr", ":"+port); err != nil {
			return nil, err
		}
	}

	if err := splitOrigins(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if overrides.Addr != nil {
		cfg.Addr = *overrides.Addr
	}
	if overrides.DatabaseDSN != nil {
		cfg.Database.DSN = *overrides.DatabaseDSN
	}
	if overrides.JWTSecret != nil {
		cfg.JWTSecret = *overrides.JWTSecret
	}
	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

func findConfigFile(explicit *string) string {
	if explicit != nil {
		return *explicit
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitOrigins turns a comma separated ALLOWED_ORIGINS value into a slice.
func splitOrigins(k *koanf.Koanf) error {
	raw, ok := k.Get("allowed_origins").(string)
	if !ok {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return nil
	}
	return k.Set("allowed_origins", origins)
}
