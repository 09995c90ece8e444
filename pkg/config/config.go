// Package config loads membuf configuration from a YAML file, environment
// variables, and defaults.
//
// Sources in order of precedence:
//  1. Environment variables (MEMBUF_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/membufio/membuf/internal/bytesize"
)

// Config is the full membuf configuration.
type Config struct {
	// Membuf controls the cache filter itself.
	Membuf MembufConfig `mapstructure:"membuf" yaml:"membuf"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus collector.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API controls the status/metrics HTTP server.
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Stream holds defaults for the CLI pump.
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`
}

// MembufConfig gates the filter. The cache refuses to open when Enable is
// false, so a host pipeline falls through to the bare source.
type MembufConfig struct {
	Enable bool `mapstructure:"enable" yaml:"enable"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"             yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls metric collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// APIConfig controls the status HTTP server.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen"  validate:"omitempty,hostname_port" yaml:"listen"`
}

// StreamConfig holds CLI pump defaults.
type StreamConfig struct {
	// ReadSize is how much the pump asks for per Read call.
	ReadSize bytesize.ByteSize `mapstructure:"read_size" validate:"gt=0" yaml:"read_size"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Membuf:  MembufConfig{Enable: false},
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stderr"},
		Metrics: MetricsConfig{Enabled: true},
		API:     APIConfig{Enabled: false, Listen: "127.0.0.1:7171"},
		Stream:  StreamConfig{ReadSize: 64 * bytesize.KiB},
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply. A missing file at an explicit
// path is an error.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("membuf.enable", def.Membuf.Enable)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("api.enabled", def.API.Enabled)
	v.SetDefault("api.listen", def.API.Listen)
	v.SetDefault("stream.read_size", def.Stream.ReadSize.String())

	v.SetEnvPrefix("MEMBUF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(byteSizeHook())); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a configuration for internal consistency.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("invalid config: api.listen required when api.enabled")
	}
	return nil
}

// byteSizeHook decodes "4Mi"-style strings and plain numbers into
// bytesize.ByteSize fields.
func byteSizeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
