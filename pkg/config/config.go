// Package config loads sparqlab settings from a YAML file, SPARQLAB_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/coolbeans/sparqlab/pkg/query"
	"github.com/coolbeans/sparqlab/pkg/render"
)

// Configuration keys.
const (
	KeyLogLevel      = "log_level"
	KeyFormat        = "format"
	KeyOptional      = "optional"
	KeyAggregation   = "aggregation"
	KeyDataset       = "dataset"
	KeyExamplesDir   = "examples_dir"
	KeyWatchExamples = "watch_examples"
	KeyHistoryFile   = "history_file"
)

// EnvPrefix is prepended to every key to form its environment variable.
const EnvPrefix = "SPARQLAB"

// Config holds the resolved settings.
type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	Format        string `mapstructure:"format"`
	Optional      string `mapstructure:"optional"`
	Aggregation   string `mapstructure:"aggregation"`
	Dataset       string `mapstructure:"dataset"` // Turtle or N-Triples file replacing the built-in catalog
	ExamplesDir   string `mapstructure:"examples_dir"`
	WatchExamples bool   `mapstructure:"watch_examples"`
	HistoryFile   string `mapstructure:"history_file"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		LogLevel:    "warn",
		Format:      string(render.FormatTable),
		Optional:    string(query.OptionalFirst),
		Aggregation: string(query.AggregationStrict),
		HistoryFile: ".sparqlab_history",
	}
}

// NewViper returns a viper instance reading from fs with defaults, the
// environment prefix and the standard search paths configured.
func NewViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)

	d := Defaults()
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyFormat, d.Format)
	v.SetDefault(KeyOptional, d.Optional)
	v.SetDefault(KeyAggregation, d.Aggregation)
	v.SetDefault(KeyDataset, d.Dataset)
	v.SetDefault(KeyExamplesDir, d.ExamplesDir)
	v.SetDefault(KeyWatchExamples, d.WatchExamples)
	v.SetDefault(KeyHistoryFile, d.HistoryFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("sparqlab")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/sparqlab")
	return v
}

// Load reads the configuration file, if any, and returns the validated
// settings. An explicit file must exist; otherwise the search paths are
// tried and a missing file leaves the defaults in place.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := query.ParseOptionalPolicy(c.Optional); err != nil {
		errs = append(errs, err)
	}
	if _, err := query.ParseAggregationMode(c.Aggregation); err != nil {
		errs = append(errs, err)
	}
	if c.WatchExamples && c.ExamplesDir == "" {
		errs = append(errs, fmt.Errorf("%s requires %s", KeyWatchExamples, KeyExamplesDir))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// SlogLevel returns the configured log level, falling back to warn.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// OutputFormat returns the configured render format.
func (c *Config) OutputFormat() render.Format {
	f, err := render.ParseFormat(c.Format)
	if err != nil {
		return render.FormatTable
	}
	return f
}

// QueryOptions translates the settings into executor options.
func (c *Config) QueryOptions() []query.ExecutorOption {
	var opts []query.ExecutorOption
	if policy, err := query.ParseOptionalPolicy(c.Optional); err == nil {
		opts = append(opts, query.WithOptionalPolicy(policy))
	}
	if mode, err := query.ParseAggregationMode(c.Aggregation); err == nil {
		opts = append(opts, query.WithAggregation(mode))
	}
	return opts
}
