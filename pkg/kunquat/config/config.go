// Package config loads Player configuration from a YAML file with
// environment-variable overrides, following the layered config pattern
// (defaults -> file -> env) the example corpus uses for service config.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Player holds the subset of render-core parameters a host can set ahead
// of time: audio rate, buffer size, thread count, plus the voice-pool and
// ramp tuning constants.
type Player struct {
	AudioRateHz        uint32 `yaml:"audio_rate_hz" mapstructure:"audio_rate_hz"`
	BufferSizeFrames   uint32 `yaml:"buffer_size_frames" mapstructure:"buffer_size_frames"`
	ThreadCount        uint32 `yaml:"thread_count" mapstructure:"thread_count"`
	VoicePoolCapacity  int    `yaml:"voice_pool_capacity" mapstructure:"voice_pool_capacity"`
	ReleaseRampFrames  int    `yaml:"release_ramp_frames" mapstructure:"release_ramp_frames"`
	AttackRampFrames   int    `yaml:"attack_ramp_frames" mapstructure:"attack_ramp_frames"`
}

// Default returns the engine's built-in defaults, used when no config file
// is present and no env override applies.
func Default() Player {
	return Player{
		AudioRateHz:       48000,
		BufferSizeFrames:  1024,
		ThreadCount:       1,
		VoicePoolCapacity: 64,
		ReleaseRampFrames: 64,
		AttackRampFrames:  32,
	}
}

// Load reads a YAML config file (if path is non-empty and exists) layered
// over Default(), then applies KUNQUAT_-prefixed environment overrides via
// viper, matching the defaults -> file -> env precedence used elsewhere in
// the example corpus's service configs.
func Load(path string) (Player, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("KUNQUAT")
	v.AutomaticEnv()
	v.SetDefault("audio_rate_hz", cfg.AudioRateHz)
	v.SetDefault("buffer_size_frames", cfg.BufferSizeFrames)
	v.SetDefault("thread_count", cfg.ThreadCount)
	v.SetDefault("voice_pool_capacity", cfg.VoicePoolCapacity)
	v.SetDefault("release_ramp_frames", cfg.ReleaseRampFrames)
	v.SetDefault("attack_ramp_frames", cfg.AttackRampFrames)

	cfg.AudioRateHz = uint32(v.GetInt("audio_rate_hz"))
	cfg.BufferSizeFrames = uint32(v.GetInt("buffer_size_frames"))
	cfg.ThreadCount = uint32(v.GetInt("thread_count"))
	cfg.VoicePoolCapacity = v.GetInt("voice_pool_capacity")
	cfg.ReleaseRampFrames = v.GetInt("release_ramp_frames")
	cfg.AttackRampFrames = v.GetInt("attack_ramp_frames")

	return cfg, nil
}
