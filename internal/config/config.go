// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete ka configuration.
//
// Sources, highest precedence first: KA_* environment variables
// (KA_LOGGING_LEVEL=debug), the config file, defaults.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Diff       DiffConfig       `mapstructure:"diff"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Server     ServerConfig     `mapstructure:"server"`
}

type RepositoryConfig struct {
	// Path of the repository root, empty means search upward from the working directory
	Path string `mapstructure:"path"`
	// MetaDir is the metadata directory name under the root
	MetaDir string `mapstructure:"meta_dir" validate:"required,excludesall=/\\"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

type DiffConfig struct {
	// Timeout bounds the search for a minimal edit script per file
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Compression CompressionConfig `mapstructure:"compression"`
}

type CompressionConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MinSize is the encoded record size in bytes from which records are compressed
	MinSize int `mapstructure:"min_size" validate:"gte=0"`
	Level   int `mapstructure:"level" validate:"min=1,max=4"`
}

type CacheConfig struct {
	// Size is the number of reconstructed contents kept in memory, 0 disables the cache
	Size       int    `mapstructure:"size" validate:"gte=0"`
	Persistent bool   `mapstructure:"persistent"`
	Dir        string `mapstructure:"dir" validate:"required_if=Persistent true"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gt=0"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

const envPrefix = "KA"

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("repository.path", "")
	v.SetDefault("repository.meta_dir", ".ka")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("diff.timeout", 100*time.Millisecond)
	v.SetDefault("storage.compression.enabled", true)
	v.SetDefault("storage.compression.min_size", 4096)
	v.SetDefault("storage.compression.level", 2)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.persistent", false)
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7420)
}

// Load reads configuration from path, or from the default location when path
// is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: failed on '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return &cfg
}

// Init writes the default configuration to path as YAML. An existing file is
// only replaced when force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	v := viper.New()
	setDefaults(v)

	data, err := yaml.Marshal(readable(v.AllSettings()))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	header := "# ka configuration\n# Every key can be overridden with KA_<SECTION>_<KEY>.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// readable renders durations as strings ("100ms") so the written file is
// edited the same way it is read.
func readable(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, val := range settings {
		switch typed := val.(type) {
		case map[string]any:
			out[k] = readable(typed)
		case time.Duration:
			out[k] = typed.String()
		default:
			out[k] = val
		}
	}
	return out
}

// ConfigDir returns $XDG_CONFIG_HOME/ka, ~/.config/ka, or the working directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ka")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ka")
}

// DefaultConfigPath is where Init writes when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ka-cache")
	}
	return filepath.Join(dir, "ka")
}
