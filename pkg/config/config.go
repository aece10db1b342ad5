// Package config loads the dashboard configuration from an optional YAML
// file on top of built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sudorandom/attack-map/pkg/attack"
	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
	"github.com/sudorandom/attack-map/pkg/sources"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("attack_filter", func(fl validator.FieldLevel) bool {
		return attack.ValidFilter(fl.Field().String())
	})
}

// Config is the full dashboard configuration.
type Config struct {
	Playback scheduler.PlaybackConfig `yaml:"playback"`
	Limits   scheduler.Limits         `yaml:"limits"`
	Data     DataConfig               `yaml:"data"`
	Map      MapConfig                `yaml:"map"`
	Theme    ThemeConfig              `yaml:"theme"`
	Server   ServerConfig             `yaml:"server"`
	Capture  CaptureConfig            `yaml:"capture"`
	Debug    bool                     `yaml:"debug"`
}

// DataConfig controls the synthetic event set.
type DataConfig struct {
	Count int       `yaml:"count" validate:"min=0,max=100000"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
	Seed  int64     `yaml:"seed"`
}

// MapConfig controls the projection and base map.
type MapConfig struct {
	Width      int      `yaml:"width" validate:"gt=0"`
	Height     int      `yaml:"height" validate:"gt=0"`
	Projection geo.Kind `yaml:"projection" validate:"oneof=mercator mollweide"`
	Scale      float64  `yaml:"scale" validate:"min=0"`
	BaseMapURL string   `yaml:"base_map_url" validate:"required"`
	UseCache   bool     `yaml:"use_cache"`
	CacheDir   string   `yaml:"cache_dir"`
}

// ThemeConfig selects the static map colours.
type ThemeConfig struct {
	Light bool `yaml:"light"`
}

// ServerConfig controls the streaming server.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
}

// CaptureConfig controls PNG frame capture in the map viewer.
type CaptureConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Playback: scheduler.DefaultPlaybackConfig(),
		Limits:   scheduler.DefaultLimits(),
		Data: DataConfig{
			Count: 500,
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		},
		Map: MapConfig{
			Width:      800,
			Height:     500,
			Projection: geo.KindMercator,
			BaseMapURL: sources.BaseMapURL,
			UseCache:   true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			TickInterval: 16 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode unmarshals YAML into cfg, rejecting unknown keys.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, formatValidationError(err))
	}
	if err := validatePlayback(c.Playback); err != nil {
		return err
	}
	return nil
}

func validatePlayback(p scheduler.PlaybackConfig) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, formatValidationError(err))
	}
	if err := validate.Var(p.AttackTypeFilter, "attack_filter"); err != nil {
		return fmt.Errorf("%w: AttackTypeFilter: unknown attack type %q", ErrInvalid, p.AttackTypeFilter)
	}
	return nil
}

// ValidatePlayback checks a playback configuration coming from a control.
func ValidatePlayback(p scheduler.PlaybackConfig) error {
	return validatePlayback(p)
}

func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
