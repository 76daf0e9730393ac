// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the driver station configuration using viper
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	driverstation "github.com/blinklabs-io/godriverstation"
	"github.com/blinklabs-io/godriverstation/discovery"
	"github.com/blinklabs-io/godriverstation/protocol"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. GODS_TEAM or GODS_LOG_LEVEL
const EnvPrefix = "GODS"

type Config struct {
	Team          uint           `mapstructure:"team" yaml:"team"`
	Protocol      string         `mapstructure:"protocol" yaml:"protocol"`
	CustomAddress string         `mapstructure:"custom_address" yaml:"custom_address"`
	Station       string         `mapstructure:"station" yaml:"station"`
	Timezone      string         `mapstructure:"timezone" yaml:"timezone"`
	Log           LogConfig      `mapstructure:"log" yaml:"log"`
	Practice      PracticeConfig `mapstructure:"practice" yaml:"practice"`
	Timeouts      TimeoutConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Metrics       MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	RobotLog      RobotLogConfig `mapstructure:"robot_log" yaml:"robot_log"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`
	Format string        `mapstructure:"format" yaml:"format"`
	File   LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig controls the rotating log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// PracticeConfig holds the practice match phase durations, in seconds
type PracticeConfig struct {
	Countdown    int `mapstructure:"countdown" yaml:"countdown"`
	Autonomous   int `mapstructure:"autonomous" yaml:"autonomous"`
	Delay        int `mapstructure:"delay" yaml:"delay"`
	Teleoperated int `mapstructure:"teleoperated" yaml:"teleoperated"`
	EndGame      int `mapstructure:"end_game" yaml:"end_game"`
}

// TimeoutConfig overrides the protocol watchdog timeouts. Zero keeps the protocol default
type TimeoutConfig struct {
	Robot time.Duration `mapstructure:"robot" yaml:"robot"`
	FMS   time.Duration `mapstructure:"fms" yaml:"fms"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type RobotLogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Load loads configuration from the file at path, if provided, then applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return unmarshal(v)
}

// Default returns the default configuration
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		// The defaults are always valid
		panic(err)
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("team", 0)
	v.SetDefault("protocol", driverstation.DefaultProtocol.Id())
	v.SetDefault("custom_address", "")
	v.SetDefault("station", protocol.DefaultStation.String())
	v.SetDefault("timezone", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "godriverstation.log")
	v.SetDefault("log.file.max_size_mb", 20)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("practice.countdown", protocol.DefaultPracticeCountdown)
	v.SetDefault("practice.autonomous", protocol.DefaultPracticeAutonomous)
	v.SetDefault("practice.delay", protocol.DefaultPracticeDelay)
	v.SetDefault("practice.teleoperated", protocol.DefaultPracticeTeleoperated)
	v.SetDefault("practice.end_game", protocol.DefaultPracticeEndGame)

	v.SetDefault("timeouts.robot", "0s")
	v.SetDefault("timeouts.fms", "0s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9118")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("robot_log.enabled", false)
	v.SetDefault("robot_log.path", "robot.log")
}

// ValidateAndApplyDefaults validates configuration and normalizes values
func (cfg *Config) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return errors.New("log.file.path is required when log.file.enabled=true")
	}
	if err := discovery.ValidateTeamNumber(cfg.Team); err != nil {
		return err
	}
	desc, ok := driverstation.ProtocolByName(cfg.Protocol)
	if !ok {
		return fmt.Errorf("unknown protocol: %s", cfg.Protocol)
	}
	cfg.Protocol = desc.Id()
	if _, err := protocol.ParseStation(cfg.Station); err != nil {
		return fmt.Errorf("invalid station: %w", err)
	}
	practice := []int{
		cfg.Practice.Countdown,
		cfg.Practice.Autonomous,
		cfg.Practice.Delay,
		cfg.Practice.Teleoperated,
		cfg.Practice.EndGame,
	}
	for _, seconds := range practice {
		if seconds < 0 {
			return errors.New("practice durations must not be negative")
		}
	}
	if cfg.Practice.EndGame > cfg.Practice.Teleoperated {
		return errors.New("practice.end_game must not exceed practice.teleoperated")
	}
	if cfg.Timeouts.Robot < 0 || cfg.Timeouts.FMS < 0 {
		return errors.New("timeouts must not be negative")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return errors.New("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.RobotLog.Enabled && cfg.RobotLog.Path == "" {
		return errors.New("robot_log.path is required when robot_log.enabled=true")
	}
	return nil
}

// StationValue returns the parsed alliance station
func (cfg *Config) StationValue() protocol.Station {
	station, err := protocol.ParseStation(cfg.Station)
	if err != nil {
		return protocol.DefaultStation
	}
	return station
}

// PracticeTimings converts the practice durations
func (cfg *Config) PracticeTimings() protocol.PracticeTimings {
	return protocol.PracticeTimings{
		Countdown:    time.Duration(cfg.Practice.Countdown) * time.Second,
		Autonomous:   time.Duration(cfg.Practice.Autonomous) * time.Second,
		Delay:        time.Duration(cfg.Practice.Delay) * time.Second,
		Teleoperated: time.Duration(cfg.Practice.Teleoperated) * time.Second,
		EndGame:      time.Duration(cfg.Practice.EndGame) * time.Second,
	}
}

// Timing returns the protocol timing overrides
func (cfg *Config) Timing() protocol.Timing {
	return protocol.Timing{
		RobotTimeout: cfg.Timeouts.Robot,
		FMSTimeout:   cfg.Timeouts.FMS,
	}
}

// Write writes the configuration as YAML
func (cfg *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
