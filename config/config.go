// Package config loads runtime configuration from an optional YAML file and
// PRINTCORE_* environment variables. The pacing constants were chosen
// empirically on one printer model; treat them as starting points.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the print core.
type Config struct {
	// Width is the printer's fixed dot width.
	Width int `mapstructure:"width"`

	// BandHeight is the maximum rows per raster command, sized so one band's
	// payload fits the printer's internal buffer.
	BandHeight int `mapstructure:"band_height"`

	// BaseSleep is the minimum settle pause after every band.
	BaseSleep time.Duration `mapstructure:"base_sleep"`

	// DarkBonus is the extra pause applied at full ink coverage.
	DarkBonus time.Duration `mapstructure:"dark_bonus"`

	// FeedLines is the number of paper-feed commands at job end.
	FeedLines int `mapstructure:"feed_lines"`

	// HeatTime is the head energize parameter sent at initialization.
	HeatTime int `mapstructure:"heat_time"`

	// Baud is the serial line rate.
	Baud int `mapstructure:"baud"`

	// RetryPause is the pause before the single retry of a failed send.
	RetryPause time.Duration `mapstructure:"retry_pause"`

	// UpsideDown rotates output 180 degrees for wall-mounted units.
	UpsideDown bool `mapstructure:"upside_down"`
}

// Default returns the configuration matching the reference printer.
func Default() Config {
	return Config{
		Width:      384,
		BandHeight: 64,
		BaseSleep:  25 * time.Millisecond,
		DarkBonus:  200 * time.Millisecond,
		FeedLines:  8,
		HeatTime:   110,
		Baud:       19200,
		RetryPause: 300 * time.Millisecond,
	}
}

// Load reads configuration from the given file (or the default search path
// when file is empty) and the environment. A missing config file is fine;
// defaults and environment variables still apply.
func Load(file string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("width", def.Width)
	v.SetDefault("band_height", def.BandHeight)
	v.SetDefault("base_sleep", def.BaseSleep)
	v.SetDefault("dark_bonus", def.DarkBonus)
	v.SetDefault("feed_lines", def.FeedLines)
	v.SetDefault("heat_time", def.HeatTime)
	v.SetDefault("baud", def.Baud)
	v.SetDefault("retry_pause", def.RetryPause)
	v.SetDefault("upside_down", def.UpsideDown)

	v.SetEnvPrefix("PRINTCORE")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("printcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/printcore")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the transport session cannot honor.
func (c Config) Validate() error {
	if c.Width < 8 {
		return fmt.Errorf("width must be at least 8 dots, got %d", c.Width)
	}
	if c.BandHeight < 1 {
		return fmt.Errorf("band height must be positive, got %d", c.BandHeight)
	}
	if c.BaseSleep < 0 || c.DarkBonus < 0 {
		return errors.New("pacing delays must not be negative")
	}
	if c.FeedLines < 0 {
		return fmt.Errorf("feed lines must not be negative, got %d", c.FeedLines)
	}
	if c.HeatTime < 0 || c.HeatTime > 255 {
		return fmt.Errorf("heat time must be in 0..255, got %d", c.HeatTime)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.RetryPause < 0 {
		return errors.New("retry pause must not be negative")
	}
	return nil
}
