package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// current holds the configuration loaded by Init. The file watcher swaps it
// on every change.
var current atomic.Pointer[Config]

// Current returns the configuration last loaded by Init, or nil before Init.
func Current() *Config {
	return current.Load()
}

// Config struct is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	SART     SARTConfig     `mapstructure:"sart"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	SessionSecret  string        `mapstructure:"session_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SecureCookies  bool          `mapstructure:"secure_cookies"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Path     string `mapstructure:"path"`
	LogLevel string `mapstructure:"log_level"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SARTConfig holds the test protocol settings that may vary per deployment.
type SARTConfig struct {
	Rounds        int    `mapstructure:"rounds"`
	FillerFile    string `mapstructure:"filler_file"`
	DefaultFiller string `mapstructure:"default_filler"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.session_ttl", 2*time.Hour)
	v.SetDefault("server.reap_interval", time.Minute)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.secure_cookies", false)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "sart-db")
	v.SetDefault("database.path", "data/sart.db")
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "debug")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Protocol defaults
	v.SetDefault("sart.rounds", 3)
	v.SetDefault("sart.filler_file", "config/filler.yaml")
	v.SetDefault("sart.default_filler", "v1")
}

// Load reads the configuration without watching for changes. Commands that
// run once, like migrate and simulate, use it before a logger exists.
func Load(projectRoot string) (*Config, error) {
	v := newViper(projectRoot)
	if err := read(v); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := newViper(projectRoot)

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := read(v); err != nil {
		return err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	current.Store(&cfg)

	// Set up a watch for configuration changes for hot-reloading.
	// Readers that go through Current see the new values; sessions already
	// running keep the settings they were created with.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		current.Store(&next)
	})

	log.Info("Configuration loaded successfully", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func newViper(projectRoot string) *viper.Viper {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("SART") // e.g., SART_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
