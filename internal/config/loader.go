// Package config loads windlass settings.
//
// Precedence, lowest to highest: built-in defaults, a windlass.yaml config
// file (working directory or the user config dir), WINDLASS_* environment
// variables (a .env file in the working directory is honored), and runtime
// overrides passed to Load.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "WINDLASS"
	configName    = "windlass"
	configType    = "yaml"
	configDirName = "windlass"
)

// Settings is the resolved windlass configuration.
type Settings struct {
	// Bucket is the bucket objects are listed from.
	Bucket string `mapstructure:"bucket"`

	// Prefix narrows listing to keys under this prefix.
	Prefix string `mapstructure:"prefix"`

	// DownloadDir is the local directory pulled files land in.
	DownloadDir string `mapstructure:"download_dir"`

	Provider ProviderSettings `mapstructure:"provider"`
	Listing  ListingSettings  `mapstructure:"listing"`
	Logging  LoggingSettings  `mapstructure:"logging"`
}

// ProviderSettings configures the storage backend.
type ProviderSettings struct {
	// Type is the backend type: "s3" or "file".
	Type string `mapstructure:"type"`

	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `mapstructure:"region"`

	// Endpoint is a custom endpoint URL for S3-compatible services.
	Endpoint string `mapstructure:"endpoint"`

	// Profile is the shared credentials profile name.
	Profile string `mapstructure:"profile"`

	// ForcePathStyle forces path-style addressing (MinIO, moto).
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// MaxKeys caps the page size of list requests. 0 uses the backend default.
	MaxKeys int32 `mapstructure:"max_keys"`
}

// ListingSettings configures listing behavior.
type ListingSettings struct {
	// RateLimit caps list requests per second. 0 is unlimited.
	RateLimit float64 `mapstructure:"rate_limit"`

	// Timeout bounds a whole listing run. 0 is no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingSettings configures the CLI logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile is "console" or "structured".
	Profile string `mapstructure:"profile"`
}

var (
	configMu   sync.RWMutex
	appConfig  *Settings
	configFile string
)

// SetConfigFile pins configuration loading to an explicit file path,
// bypassing the search paths. An empty path restores the default search.
func SetConfigFile(path string) {
	configMu.Lock()
	configFile = path
	configMu.Unlock()
}

// Load resolves settings and stores them as the process-wide configuration.
//
// Runtime overrides are nested maps keyed like the config file
// (e.g. {"logging": {"level": "debug"}}) and take precedence over
// everything else. Load may be called again to replace the stored settings.
func Load(ctx context.Context, overrides ...map[string]any) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A .env next to the invocation is applied to the process environment
	// before viper reads it. Absent files are not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()

	if explicit != "" {
		// An explicitly named file must exist.
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configDirName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for _, o := range overrides {
		applyOverrides(v, o, "")
	}

	var s Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, hook); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &s
	configMu.Unlock()

	return &s, nil
}

// GetConfig returns the settings stored by the most recent Load,
// or nil if Load has not run.
func GetConfig() *Settings {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate rejects settings no command could act on.
func (s *Settings) Validate() error {
	switch s.Provider.Type {
	case "s3", "file":
	default:
		return fmt.Errorf("provider.type must be s3 or file, got %q", s.Provider.Type)
	}
	switch s.Logging.Profile {
	case "console", "structured":
	default:
		return fmt.Errorf("logging.profile must be console or structured, got %q", s.Logging.Profile)
	}
	if s.Listing.RateLimit < 0 {
		return fmt.Errorf("listing.rate_limit must not be negative, got %v", s.Listing.RateLimit)
	}
	if s.Listing.Timeout < 0 {
		return fmt.Errorf("listing.timeout must not be negative, got %v", s.Listing.Timeout)
	}
	if s.Provider.MaxKeys < 0 {
		return fmt.Errorf("provider.max_keys must not be negative, got %d", s.Provider.MaxKeys)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bucket", "")
	v.SetDefault("prefix", "")
	v.SetDefault("download_dir", "downloads")

	v.SetDefault("provider.type", "s3")
	v.SetDefault("provider.region", "")
	v.SetDefault("provider.endpoint", "")
	v.SetDefault("provider.profile", "")
	v.SetDefault("provider.force_path_style", false)
	v.SetDefault("provider.max_keys", 0)

	v.SetDefault("listing.rate_limit", 0.0)
	v.SetDefault("listing.timeout", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "console")
}

// applyOverrides flattens nested override maps into dotted keys.
func applyOverrides(v *viper.Viper, overrides map[string]any, prefix string) {
	for key, val := range overrides {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			applyOverrides(v, nested, full)
			continue
		}
		v.Set(full, val)
	}
}
