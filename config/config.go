// config.go

// Copyright (C) 2026  The tellolink Authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package config loads the settings for the tellolink tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Drone     DroneConfig     `mapstructure:"drone" yaml:"drone"`
	Timing    TimingConfig    `mapstructure:"timing" yaml:"timing"`
	Video     VideoConfig     `mapstructure:"video" yaml:"video"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	FlightLog FlightLogConfig `mapstructure:"flight_log" yaml:"flight_log"`
}

// DroneConfig holds the network endpoints.
type DroneConfig struct {
	Address          string `mapstructure:"address" yaml:"address"`
	CommandPort      int    `mapstructure:"command_port" yaml:"command_port"`
	LocalCommandPort int    `mapstructure:"local_command_port" yaml:"local_command_port"` // 0 = any
	StatePort        int    `mapstructure:"state_port" yaml:"state_port"`
	VideoPort        int    `mapstructure:"video_port" yaml:"video_port"`
}

// TimingConfig holds the exchange deadline and heartbeat period.
type TimingConfig struct {
	ReplyTimeout    time.Duration `mapstructure:"reply_timeout" yaml:"reply_timeout"`
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period" yaml:"heartbeat_period"`
}

// VideoConfig holds the external decoder settings.
type VideoConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	DecoderCommand string        `mapstructure:"decoder_command" yaml:"decoder_command"`
	DecoderArgs    []string      `mapstructure:"decoder_args" yaml:"decoder_args"`
	FrameDir       string        `mapstructure:"frame_dir" yaml:"frame_dir"`
	StreamOnDelay  time.Duration `mapstructure:"stream_on_delay" yaml:"stream_on_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // console or json
	File       string `mapstructure:"file" yaml:"file"`     // empty = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// FlightLogConfig holds the on-disk journal settings.
type FlightLogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Load reads configuration from configPath (or the default search paths when empty),
// then the TELLO_* environment, on top of the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("tello")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tello")
	}

	v.SetEnvPrefix("TELLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// a missing file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("drone.address", "192.168.10.1")
	v.SetDefault("drone.command_port", 8889)
	v.SetDefault("drone.local_command_port", 8889)
	v.SetDefault("drone.state_port", 8890)
	v.SetDefault("drone.video_port", 11111)

	v.SetDefault("timing.reply_timeout", 500*time.Millisecond)
	v.SetDefault("timing.heartbeat_period", 5*time.Second)

	v.SetDefault("video.enabled", false)
	v.SetDefault("video.decoder_command", "ffmpeg")
	v.SetDefault("video.decoder_args", []string{})
	v.SetDefault("video.frame_dir", "frames")
	v.SetDefault("video.stream_on_delay", 1*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("flight_log.enabled", false)
	v.SetDefault("flight_log.path", "flights.db")
}

// Validate checks cfg for values the session cannot work with.
func Validate(cfg *Config) error {
	if cfg.Drone.Address == "" {
		return errors.New("drone.address is required")
	}
	for name, port := range map[string]int{
		"drone.command_port": cfg.Drone.CommandPort,
		"drone.state_port":   cfg.Drone.StatePort,
		"drone.video_port":   cfg.Drone.VideoPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if cfg.Drone.LocalCommandPort < 0 || cfg.Drone.LocalCommandPort > 65535 {
		return fmt.Errorf("drone.local_command_port must be between 0 and 65535, got %d", cfg.Drone.LocalCommandPort)
	}
	if cfg.Timing.ReplyTimeout <= 0 {
		return fmt.Errorf("timing.reply_timeout must be positive, got %s", cfg.Timing.ReplyTimeout)
	}
	if cfg.Timing.HeartbeatPeriod <= cfg.Timing.ReplyTimeout {
		return fmt.Errorf("timing.heartbeat_period (%s) must be longer than timing.reply_timeout (%s)",
			cfg.Timing.HeartbeatPeriod, cfg.Timing.ReplyTimeout)
	}
	if cfg.Video.Enabled && cfg.Video.FrameDir == "" {
		return errors.New("video.frame_dir is required when video is enabled")
	}
	if cfg.FlightLog.Enabled && cfg.FlightLog.Path == "" {
		return errors.New("flight_log.path is required when the flight log is enabled")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Logging.Format)
	}
	return nil
}
