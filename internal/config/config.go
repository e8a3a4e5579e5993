// Package config loads server and CLI settings from an optional YAML file and
// QUADTREE_MCP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/ironsheep/quadtree-mcp/internal/imaging"
	"github.com/ironsheep/quadtree-mcp/internal/quadtree"
)

// EnvPrefix prefixes every environment override, e.g. QUADTREE_MCP_LOG_LEVEL.
const EnvPrefix = "QUADTREE_MCP"

type Config struct {
	Build  BuildConfig  `mapstructure:"build"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Render RenderConfig `mapstructure:"render"`
}

// BuildConfig holds the default quadtree build parameters. Tool calls may
// override each of them.
type BuildConfig struct {
	Tolerance     float64 `mapstructure:"tolerance"`
	MinLeafSize   int     `mapstructure:"min_leaf_size"`
	Metric        string  `mapstructure:"metric"`
	ParallelDepth int     `mapstructure:"parallel_depth"`
	BlurSigma     float64 `mapstructure:"blur_sigma"`
}

type StoreConfig struct {
	Compress bool `mapstructure:"compress"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"`
}

type RenderConfig struct {
	LineColor string  `mapstructure:"line_color"`
	LineWidth float64 `mapstructure:"line_width"`
	// MaxPixels caps the pixel count of a rendering, scale included.
	MaxPixels int64 `mapstructure:"max_pixels"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or
// the environment.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			Tolerance:     0,
			MinLeafSize:   1,
			Metric:        quadtree.MetricMaxChannel.String(),
			ParallelDepth: 2,
		},
		Store: StoreConfig{Compress: true},
		Log:   LogConfig{Level: "info", Mode: "production"},
		Render: RenderConfig{
			LineColor: "#FF0000",
			LineWidth: 1,
			MaxPixels: imaging.DefaultMaxPixels,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("build.tolerance", d.Build.Tolerance)
	v.SetDefault("build.min_leaf_size", d.Build.MinLeafSize)
	v.SetDefault("build.metric", d.Build.Metric)
	v.SetDefault("build.parallel_depth", d.Build.ParallelDepth)
	v.SetDefault("build.blur_sigma", d.Build.BlurSigma)

	v.SetDefault("store.compress", d.Store.Compress)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.mode", d.Log.Mode)

	v.SetDefault("render.line_color", d.Render.LineColor)
	v.SetDefault("render.line_width", d.Render.LineWidth)
	v.SetDefault("render.max_pixels", d.Render.MaxPixels)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if _, optErr := c.Build.Options(); optErr != nil {
		err = multierr.Append(err, optErr)
	}
	if c.Build.BlurSigma < 0 || math.IsNaN(c.Build.BlurSigma) {
		err = multierr.Append(err, fmt.Errorf("build.blur_sigma %v must not be negative", c.Build.BlurSigma))
	}
	switch c.Log.Mode {
	case "production", "development":
	default:
		err = multierr.Append(err, fmt.Errorf("log.mode %q must be production or development", c.Log.Mode))
	}
	if c.Render.LineWidth <= 0 {
		err = multierr.Append(err, fmt.Errorf("render.line_width %v must be positive", c.Render.LineWidth))
	}
	if c.Render.MaxPixels <= 0 {
		err = multierr.Append(err, fmt.Errorf("render.max_pixels %d must be positive", c.Render.MaxPixels))
	}
	if err != nil {
		return errors.Join(quadtree.ErrConfig, err)
	}
	return nil
}

// Options converts the build section into quadtree build options.
func (b BuildConfig) Options() (quadtree.Options, error) {
	metric, err := quadtree.ParseMetric(b.Metric)
	if err != nil {
		return quadtree.Options{}, err
	}
	opts := quadtree.Options{
		Tolerance:     b.Tolerance,
		MinLeafSize:   b.MinLeafSize,
		Metric:        metric,
		ParallelDepth: b.ParallelDepth,
	}
	if err := opts.Validate(); err != nil {
		return quadtree.Options{}, err
	}
	return opts, nil
}
