// Package config loads and validates integrator settings.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/imaging"
	"github.com/roach88/integrator/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes environment overrides, e.g. INTEGRATOR_DATABASE_PATH.
const EnvPrefix = "INTEGRATOR"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "integrator"

// Config aggregates configuration for the integrator.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database" json:"database"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache" json:"cache"`
	Image    ImageConfig    `mapstructure:"image" yaml:"image" json:"image"`
	Log      LogConfig      `mapstructure:"log" yaml:"log" json:"log"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

type CacheConfig struct {
	// TTL of the artifact read-through cache. Zero disables it.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	// Capacity bounds each artifact cache. Zero is unbounded.
	Capacity uint64 `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
}

type ImageConfig struct {
	MaxWidth  int     `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MaxHeight int     `mapstructure:"max_height" yaml:"max_height" json:"max_height"`
	Quality   float64 `mapstructure:"quality" yaml:"quality" json:"quality"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// File, when set, receives a JSON copy of every log record.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	img := imaging.DefaultOptions()
	return &Config{
		Database: DatabaseConfig{Path: "integrator.db"},
		Cache:    CacheConfig{TTL: artifact.DefaultOptions().TTL},
		Image: ImageConfig{
			MaxWidth:  img.MaxWidth,
			MaxHeight: img.MaxHeight,
			Quality:   img.Quality,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and environment variables.
//
// When path is empty, integrator.yaml in the working directory is used if
// present. Environment variables use the prefix "INTEGRATOR" and the dot
// character in keys is replaced by an underscore. For example,
// "cache.ttl" becomes "INTEGRATOR_CACHE_TTL".
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("config file loaded", "path", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

// Validate checks the configuration against the embedded CUE schema.
// Violations are reported as a model.ValidationError on field "config".
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	unified := def.Unify(ctx.Encode(c.document()))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &model.ValidationError{Field: "config", Message: formatCUEError(err)}
	}
	return nil
}

// document is the shape the CUE schema constrains.
func (c *Config) document() map[string]any {
	return map[string]any{
		"database": map[string]any{"path": c.Database.Path},
		"cache": map[string]any{
			"ttl_ns":   int64(c.Cache.TTL),
			"capacity": c.Cache.Capacity,
		},
		"image": map[string]any{
			"max_width":  c.Image.MaxWidth,
			"max_height": c.Image.MaxHeight,
			"quality":    c.Image.Quality,
		},
		"log": map[string]any{
			"level": c.Log.Level,
			"file":  c.Log.File,
		},
	}
}

func formatCUEError(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// ArtifactOptions maps the cache and image settings onto artifact.Options.
func (c *Config) ArtifactOptions() artifact.Options {
	opts := artifact.DefaultOptions()
	opts.TTL = c.Cache.TTL
	opts.Capacity = c.Cache.Capacity
	opts.Image = c.ImageOptions()
	return opts
}

// ImageOptions returns the normalization bounds.
func (c *Config) ImageOptions() imaging.Options {
	return imaging.Options{
		MaxWidth:  c.Image.MaxWidth,
		MaxHeight: c.Image.MaxHeight,
		Quality:   c.Image.Quality,
	}
}

// SlogLevel parses Log.Level. Unknown levels fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
