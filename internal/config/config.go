package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "cjs.cue"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "CJS"
)

//go:embed config_schema.cue
var configSchema string

// Config is the merged configuration.
type Config struct {
	LoadPaths      []string          `mapstructure:"load_paths"`
	Aliases        map[string]string `mapstructure:"-"`
	DefaultAliases bool              `mapstructure:"default_aliases"`
	LogLevel       string            `mapstructure:"log_level"`
	Trace          TraceConfig       `mapstructure:"trace"`
}

// TraceConfig controls require tracing.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DB      string `mapstructure:"db"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LoadPaths:      []string{},
		Aliases:        map[string]string{},
		DefaultAliases: true,
		LogLevel:       "info",
		Trace: TraceConfig{
			DB: "cjs-trace.db",
		},
	}
}

// Level returns LogLevel as a slog level. Unknown names map to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads the config file at path from fs. An empty path yields the
// defaults with environment overrides applied.
func Load(fs afero.Fs, path string) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("load_paths", defaults.LoadPaths)
	v.SetDefault("default_aliases", defaults.DefaultAliases)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("trace.enabled", defaults.Trace.Enabled)
	v.SetDefault("trace.db", defaults.Trace.DB)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{}
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		values, err := decode(data, path)
		if err != nil {
			return nil, err
		}

		// Alias ids keep their case and dots, which viper keys do not.
		if raw, ok := values["aliases"].(map[string]any); ok {
			for k, sub := range raw {
				aliases[k] = fmt.Sprint(sub)
			}
		}
		delete(values, "aliases")

		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Aliases = aliases

	if path != "" {
		base := filepath.Dir(path)
		for i, p := range cfg.LoadPaths {
			cfg.LoadPaths[i] = relativeTo(base, p)
		}
		cfg.Trace.DB = relativeTo(base, cfg.Trace.DB)
	}
	return &cfg, nil
}

// Validate checks data against the schema without loading it.
func Validate(data []byte, filename string) error {
	_, err := decode(data, filename)
	return err
}

// decode compiles data, unifies it with #Config and returns the plain
// values it sets.
func decode(data []byte, filename string) (map[string]any, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, formatError(userValue.Err(), filename)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatError(err, filename)
	}

	var values map[string]any
	if err := unified.Decode(&values); err != nil {
		return nil, formatError(err, filename)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// formatError flattens a CUE error list into one message.
func formatError(err error, filename string) error {
	details := strings.TrimSpace(cueerrors.Details(err, nil))
	return &ValidationError{File: filename, Details: details, Err: err}
}

// ValidationError reports a config file rejected by the schema or by the
// CUE parser.
type ValidationError struct {
	File    string
	Details string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.File, e.Details)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
