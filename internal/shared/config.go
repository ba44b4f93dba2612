package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is prepended to every environment override, e.g. AMPSYNC_SERVER_URL.
const EnvPrefix = "AMPSYNC"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Store    StoreConfig    `toml:"store"`
	Library  LibraryConfig  `toml:"library"`
	Offline  OfflineConfig  `toml:"offline"`
	Serve    ServeConfig    `toml:"serve"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig describes the remote Ampache server and the account used with it.
//
// Password is never written to disk; it is only read from the environment.
type ServerConfig struct {
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"-"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout as a [time.Duration].
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StoreConfig points at the bbolt file holding session, credentials and settings.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LibraryConfig tunes cache reconciliation.
type LibraryConfig struct {
	PageSize         int  `toml:"page_size"`
	ClearBeforeFetch bool `toml:"clear_before_fetch"`
}

// OfflineConfig tunes replay of the offline mutation log.
type OfflineConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// ServeConfig contains local HTTP API settings.
type ServeConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls log level and an optional log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	ApplyEnv(config)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays AMPSYNC_* environment variables onto config.
//
// Keys mirror the TOML layout with dots replaced by underscores, so server.url becomes AMPSYNC_SERVER_URL.
func ApplyEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("server.url", &config.Server.URL)
	str("server.username", &config.Server.Username)
	str("server.password", &config.Server.Password)
	num("server.timeout_seconds", &config.Server.TimeoutSeconds)
	str("database.path", &config.Database.Path)
	str("store.path", &config.Store.Path)
	num("library.page_size", &config.Library.PageSize)
	if v.IsSet("library.clear_before_fetch") {
		config.Library.ClearBeforeFetch = v.GetBool("library.clear_before_fetch")
	}
	num("offline.workers", &config.Offline.Workers)
	if v.IsSet("offline.rate_limit") {
		config.Offline.RateLimit = v.GetFloat64("offline.rate_limit")
	}
	num("serve.port", &config.Serve.Port)
	str("log.level", &config.Log.Level)
	str("log.file", &config.Log.File)
}

// SaveConfig writes config to path as TOML, creating parent directories.
//
// The password is never written.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
