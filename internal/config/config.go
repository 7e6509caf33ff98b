// Package config loads tool settings from an optional config file and
// SCENE2VIDEO_* environment variables. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SCENE2VIDEO_WORKERS.
const EnvPrefix = "SCENE2VIDEO"

// Config holds everything a render needs besides the project itself.
type Config struct {
	// Workers is the render pool size; 0 sizes it from CPU and memory.
	Workers int    `mapstructure:"workers"`
	FFmpeg  string `mapstructure:"ffmpeg"`
	FFprobe string `mapstructure:"ffprobe"`
	// VideoEncoder is the H.264 encoder; empty picks the best available.
	VideoEncoder string `mapstructure:"videoEncoder"`
	// CRF is the constant-quality level for H.264 encoders; 0 picks one
	// per encoder.
	CRF     int    `mapstructure:"crf"`
	Quality string `mapstructure:"quality"`
	Format  string `mapstructure:"format"`
	// DPI rasterizes PDF backgrounds.
	DPI      int    `mapstructure:"dpi"`
	FontPath string `mapstructure:"fontPath"`
	LogLevel string `mapstructure:"logLevel"`
	LogFile  string `mapstructure:"logFile"`

	Watermark Watermark `mapstructure:"watermark"`
}

// Watermark configures the corner stamp.
type Watermark struct {
	Enabled bool    `mapstructure:"enabled"`
	URL     string  `mapstructure:"url"`
	Caption string  `mapstructure:"caption"`
	Size    int     `mapstructure:"size"`
	Margin  int     `mapstructure:"margin"`
	Opacity float64 `mapstructure:"opacity"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("ffprobe", "ffprobe")
	v.SetDefault("videoEncoder", "")
	v.SetDefault("crf", 0)
	v.SetDefault("quality", "high")
	v.SetDefault("format", "mp4")
	v.SetDefault("dpi", 150)
	v.SetDefault("fontPath", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")

	v.SetDefault("watermark.enabled", false)
	v.SetDefault("watermark.url", "")
	v.SetDefault("watermark.caption", "")
	v.SetDefault("watermark.size", 96)
	v.SetDefault("watermark.margin", 16)
	v.SetDefault("watermark.opacity", 0.85)
}

// Load reads path when given. Without a path it looks for scene2video.yaml
// in the working directory and carries on with defaults when there is none.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("scene2video")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}
