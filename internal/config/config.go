// Package config loads client settings from flags, MDUPLOAD_* environment
// variables and an optional mdupload.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys.
const (
	KeyServer        = "server"
	KeyOutputDir     = "output_dir"
	KeyCleanupDelay  = "cleanup_delay"
	KeyTimeout       = "timeout"
	KeyHealthTimeout = "health_timeout"
	KeyDropDir       = "drop_dir"
	KeyLogFile       = "log_file"
	KeyLogLevel      = "log_level"
)

const (
	EnvPrefix = "MDUPLOAD"
	FileName  = "mdupload"
)

var (
	ErrInvalidServer    = errors.New("invalid server url")
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrConfigUnreadable = errors.New("failed to read config file")
)

// Config holds every client setting.
type Config struct {
	Server        string
	OutputDir     string
	CleanupDelay  time.Duration
	Timeout       time.Duration
	HealthTimeout time.Duration
	DropDir       string
	LogFile       string
	LogLevel      slog.Level
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Server:        "http://localhost:5000",
		OutputDir:     ".",
		CleanupDelay:  time.Second,
		Timeout:       0,
		HealthTimeout: 5 * time.Second,
		LogLevel:      slog.LevelInfo,
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault(KeyServer, d.Server)
	v.SetDefault(KeyOutputDir, d.OutputDir)
	v.SetDefault(KeyCleanupDelay, d.CleanupDelay)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyHealthTimeout, d.HealthTimeout)
	v.SetDefault(KeyDropDir, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogLevel, d.LogLevel.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags adds the persistent flags of the CLI to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "config file (default: ./mdupload.yaml or ~/.config/mdupload/mdupload.yaml)")
	fs.String("server", d.Server, "conversion server base URL")
	fs.StringP("output-dir", "o", d.OutputDir, "directory converted documents are saved into")
	fs.Duration("cleanup-delay", d.CleanupDelay, "delay before asking the server to delete a downloaded artifact")
	fs.Duration("timeout", d.Timeout, "timeout for conversion requests (0 = none)")
	fs.Duration("health-timeout", d.HealthTimeout, "timeout for the startup health check")
	fs.String("drop-dir", "", "directory watched for dropped files (empty = disabled)")
	fs.String("log-file", "", "write logs to this file (empty = discard)")
	fs.String("log-level", d.LogLevel.String(), "log level: debug, info, warn or error")
}

// BindFlags binds the flags registered by RegisterFlags to their keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range []string{
		KeyServer, KeyOutputDir, KeyCleanupDelay, KeyTimeout,
		KeyHealthTimeout, KeyDropDir, KeyLogFile, KeyLogLevel,
	} {
		flag := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

// ReadFile reads the config file at path, or searches the default locations
// when path is empty. A missing file in the default locations is not an
// error. It returns the file used, if any.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	return v.ConfigFileUsed(), nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server:        strings.TrimRight(v.GetString(KeyServer), "/"),
		OutputDir:     v.GetString(KeyOutputDir),
		CleanupDelay:  v.GetDuration(KeyCleanupDelay),
		Timeout:       v.GetDuration(KeyTimeout),
		HealthTimeout: v.GetDuration(KeyHealthTimeout),
		DropDir:       v.GetString(KeyDropDir),
		LogFile:       v.GetString(KeyLogFile),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidLogLevel, v.GetString(KeyLogLevel))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServer, c.Server)
	}
	for name, d := range map[string]time.Duration{
		KeyCleanupDelay:  c.CleanupDelay,
		KeyTimeout:       c.Timeout,
		KeyHealthTimeout: c.HealthTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s: %w", name, ErrNegativeDuration)
		}
	}
	return nil
}
