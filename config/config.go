// Package config loads registry configuration from the environment, an
// optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xraph/depot"
	"github.com/xraph/go-utils/log"
	"go.uber.org/zap/zapcore"
)

// Config holds the registry configuration.
type Config struct {
	// ScanGlobs are the module discovery patterns.
	ScanGlobs []string

	// WatchMode enables live reload.
	WatchMode bool

	// SourceRoot is stripped from module paths when deriving identities.
	// Empty keeps the working directory.
	SourceRoot string

	LogLevel string

	// WatchDebounce is the quiet period before a batch of file changes is reloaded.
	WatchDebounce time.Duration
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ScanGlobs:     strings.Fields(depot.DefaultScanGlobs),
		LogLevel:      "info",
		WatchDebounce: 500 * time.Millisecond,
	}
}

// Environment variables, by config key.
var envKeys = map[string]string{
	"scan_globs":     "SCAN_GLOBS",
	"watch_mode":     "WATCH_MODE",
	"source_root":    "SOURCE_ROOT",
	"log_level":      "LOG_LEVEL",
	"watch_debounce": "WATCH_DEBOUNCE",
}

// Load reads the given env files (default ".env", missing files are
// ignored), then resolves every setting from the environment, the YAML file
// at configFile when set, and the defaults, in that order of precedence.
func Load(configFile string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		// Non-fatal: .env may not exist
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading env file %s: %w", file, err)
		}
	}

	v := viper.New()

	defaults := Defaults()
	v.SetDefault("scan_globs", defaults.ScanGlobs)
	v.SetDefault("watch_mode", defaults.WatchMode)
	v.SetDefault("source_root", defaults.SourceRoot)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("watch_debounce", defaults.WatchDebounce)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := Config{
		ScanGlobs:     v.GetStringSlice("scan_globs"),
		WatchMode:     v.GetBool("watch_mode"),
		SourceRoot:    v.GetString("source_root"),
		LogLevel:      v.GetString("log_level"),
		WatchDebounce: v.GetDuration("watch_debounce"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if len(c.ScanGlobs) == 0 {
		return errors.New("scan_globs: at least one pattern is required")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce: must not be negative, got %s", c.WatchDebounce)
	}

	return nil
}

// Logger returns a development logger at the configured level.
func (c Config) Logger() log.Logger {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	return log.NewDevelopmentLoggerWithLevel(level)
}

// Apply sets process-wide settings. It must run before any class identity is
// computed.
func (c Config) Apply() {
	if c.SourceRoot != "" {
		depot.SetSourceRoot(c.SourceRoot)
	}
}

// RegistryOptions converts the configuration into registry options.
func (c Config) RegistryOptions() []depot.Option {
	return []depot.Option{
		depot.WithScanGlobs(c.ScanGlobs...),
		depot.WithLiveReload(c.WatchMode),
	}
}
