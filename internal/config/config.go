package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration, resolved from config.yaml,
// environment variables and defaults (in increasing precedence for env).
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Autosave AutosaveConfig
	Flags    FlagsConfig
	Auth     AuthConfig
	Misc     MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

type StorageConfig struct {
	// DBPath is the SQLite database file. ":memory:" is accepted for tests.
	DBPath string
}

type AutosaveConfig struct {
	// Debounce is the quiet period before an automatic draft save fires.
	Debounce time.Duration
	// SessionTTL is how long an editing session may stay idle before the
	// janitor flushes and reaps it.
	SessionTTL time.Duration
	// JanitorInterval is how often idle sessions are checked.
	JanitorInterval time.Duration
}

type FlagsConfig struct {
	// FilePath is the JSON feature-flag file; empty disables the flag store.
	FilePath string
}

type AuthConfig struct {
	// ClerkSecretKey enables Clerk session verification; empty falls back
	// to the static dev provider.
	ClerkSecretKey string
}

type MiscConfig struct {
	GinMode  string
	LogLevel string
}

// LoadConfig reads config.yaml (if present), applies defaults and
// environment overrides, and validates the result.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(getEnvOrDefault("INKWELL_CONFIG_PATH", "./config"))

	// Defaults allow running without a config file.
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "5s")
	viper.SetDefault("server.request_timeout", "5s")
	viper.SetDefault("server.cors_allowed_origins", "*")
	viper.SetDefault("storage.db_path", "./data/inkwell.db")
	viper.SetDefault("autosave.debounce", "2s")
	viper.SetDefault("autosave.session_ttl", "30m")
	viper.SetDefault("autosave.janitor_interval", "1m")
	viper.SetDefault("flags.file_path", "")
	viper.SetDefault("misc.gin_mode", "release")
	viper.SetDefault("misc.log_level", "info")

	// Environment variables automatically override config file values,
	// e.g. INKWELL_SERVER_PORT overrides server.port.
	viper.AutomaticEnv()
	viper.SetEnvPrefix("INKWELL")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	port, err := getEnvOrViperPort("PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     viper.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Storage: StorageConfig{
			DBPath: getEnvOrDefault("INKWELL_DB_PATH", viper.GetString("storage.db_path")),
		},
		Autosave: AutosaveConfig{
			Debounce:        viper.GetDuration("autosave.debounce"),
			SessionTTL:      viper.GetDuration("autosave.session_ttl"),
			JanitorInterval: viper.GetDuration("autosave.janitor_interval"),
		},
		Flags: FlagsConfig{
			FilePath: getEnvOrDefault("INKWELL_FLAGS_FILE", viper.GetString("flags.file_path")),
		},
		Auth: AuthConfig{
			ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		},
		Misc: MiscConfig{
			GinMode:  viper.GetString("misc.gin_mode"),
			LogLevel: getEnvOrDefault("LOG_LEVEL", viper.GetString("misc.log_level")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.DBPath != ":memory:" {
		if err := ensureParentDir(cfg.Storage.DBPath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage db path is required")
	}
	if c.Autosave.Debounce <= 0 {
		return fmt.Errorf("autosave debounce must be positive")
	}
	if c.Autosave.SessionTTL <= 0 {
		return fmt.Errorf("autosave session ttl must be positive")
	}
	if c.Autosave.JanitorInterval <= 0 {
		return fmt.Errorf("autosave janitor interval must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvOrViperPort resolves a port from a plain env var first (PaaS-style
// PORT), then from the viper key.
func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
