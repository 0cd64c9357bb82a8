package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	// Backend selects the storage engine: sqlite (default), postgres, or memory.
	Backend string `json:"backend,omitempty"`

	// DBPath is the SQLite database file. Empty means <base>/sift.db.
	DBPath string `json:"db_path,omitempty"`

	// PostgresDSN is the connection string used when Backend is postgres.
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// Bind is the HTTP listen address.
	Bind string `json:"bind,omitempty"`

	// Port is the HTTP listen port.
	Port int `json:"port,omitempty"`

	// RateLimitPerSecond caps sustained HTTP requests per second. 0 disables limiting.
	RateLimitPerSecond float64 `json:"rate_limit_per_second,omitempty"`

	// RateLimitBurst is the token bucket size. Defaults to 1 when limiting is on.
	RateLimitBurst int `json:"rate_limit_burst,omitempty"`

	// LogJSON switches logs to the production JSON encoder.
	LogJSON bool `json:"log_json,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths lists extra directories that export/import may touch
	// besides <base>/exports. Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on export/import.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:  BackendSQLite,
		Bind:     "127.0.0.1",
		Port:     8080,
		LogLevel: "info",
	}
}

// BaseDir returns $SIFT_HOME, or ~/.sift when it is unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("SIFT_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sift"), nil
}

// Load loads configuration from baseDir/config.json, then applies
// environment overrides. Returns defaults if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.sift.
func Load(baseDir string) (*Config, error) {
	fileCfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	envCfg, err := fromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), fileCfg), envCfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(baseDir, "sift.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres backend requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, postgres, or memory)", c.Backend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.RateLimitPerSecond < 0 {
		return errors.New("rate_limit_per_second must be non-negative")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// fromEnv reads overrides from the environment. DB_PATH is honored for
// compatibility with deployments of the original service.
func fromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if v, ok := lookup("DB_PATH"); ok {
		cfg.DBPath = strings.TrimSpace(v)
	}
	if v, ok := lookup("SIFT_BACKEND"); ok {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("SIFT_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup("SIFT_PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("SIFT_PORT: %w", err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Backend = pick(overlay.Backend, base.Backend)
	result.DBPath = pick(overlay.DBPath, base.DBPath)
	result.PostgresDSN = pick(overlay.PostgresDSN, base.PostgresDSN)
	result.Bind = pick(overlay.Bind, base.Bind)
	result.LogLevel = pick(overlay.LogLevel, base.LogLevel)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.Port = pick(overlay.Port, base.Port)
	result.RateLimitPerSecond = pick(overlay.RateLimitPerSecond, base.RateLimitPerSecond)
	result.RateLimitBurst = pick(overlay.RateLimitBurst, base.RateLimitBurst)

	// Booleans: overlay wins if true, else base
	result.LogJSON = base.LogJSON || overlay.LogJSON
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay == zero {
		return base
	}
	return overlay
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
