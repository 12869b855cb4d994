// ABOUTME: Configuration file support for the synth player
// ABOUTME: Loads YAML settings over built-in defaults and validates them
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/player"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultSampleRate       = 16000
	DefaultPacketsPerBuffer = 1024
	DefaultGain             = 0.9
	DefaultEngine           = "oto"
	DefaultHoldMS           = 300
	DefaultBaseNote         = 60
	DefaultKeys             = "awsedftgyhujk"
)

// Config holds every tunable setting
type Config struct {
	SampleRate int `yaml:"sample_rate"`

	// BufferMS sizes buffers by duration and takes precedence over
	// PacketsPerBuffer when set
	BufferMS         int `yaml:"buffer_ms"`
	PacketsPerBuffer int `yaml:"packets_per_buffer"`

	Gain      float32 `yaml:"gain"`       // player gain
	SynthGain float32 `yaml:"synth_gain"` // per-voice gain
	Polyphony int     `yaml:"polyphony"`

	Engine string `yaml:"engine"`

	// HoldMS is how long a key press sounds before it is released
	HoldMS int `yaml:"hold_ms"`

	// BaseNote is the MIDI note of the first key in Keys; each following
	// key is one semitone higher
	BaseNote int    `yaml:"base_note"`
	Keys     string `yaml:"keys"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		SampleRate:       DefaultSampleRate,
		PacketsPerBuffer: DefaultPacketsPerBuffer,
		Gain:             DefaultGain,
		SynthGain:        synth.DefaultGain,
		Polyphony:        synth.MaxToneEvents,
		Engine:           DefaultEngine,
		HoldMS:           DefaultHoldMS,
		BaseNote:         DefaultBaseNote,
		Keys:             DefaultKeys,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// decode applies YAML settings on top of the current values
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every setting
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BufferMS < 0 {
		return fmt.Errorf("buffer_ms must not be negative, got %d", c.BufferMS)
	}
	if c.PacketsPerBuffer < 0 {
		return fmt.Errorf("packets_per_buffer must not be negative, got %d", c.PacketsPerBuffer)
	}
	if c.BufferMS == 0 && c.PacketsPerBuffer == 0 {
		return errors.New("one of buffer_ms or packets_per_buffer is required")
	}
	if c.Gain < 0 {
		return fmt.Errorf("gain must not be negative, got %v", c.Gain)
	}
	if c.SynthGain <= 0 {
		return fmt.Errorf("synth_gain must be positive, got %v", c.SynthGain)
	}
	if c.Polyphony <= 0 {
		return fmt.Errorf("polyphony must be positive, got %d", c.Polyphony)
	}
	if _, err := output.NewEngine(c.Engine); err != nil {
		return err
	}
	if c.HoldMS <= 0 {
		return fmt.Errorf("hold_ms must be positive, got %d", c.HoldMS)
	}

	keys := []rune(c.Keys)
	if len(keys) == 0 {
		return errors.New("keys must not be empty")
	}
	seen := make(map[rune]bool, len(keys))
	for _, r := range keys {
		if seen[r] {
			return fmt.Errorf("key %q mapped twice", r)
		}
		seen[r] = true
	}
	if c.BaseNote < 0 || c.BaseNote+len(keys)-1 >= synth.NoteCount {
		return fmt.Errorf("base_note %d with %d keys is outside MIDI notes 0-127", c.BaseNote, len(keys))
	}

	return nil
}

// BufferSize returns the player buffer size
func (c *Config) BufferSize() player.BufferSize {
	if c.BufferMS > 0 {
		return player.BufferDuration(time.Duration(c.BufferMS) * time.Millisecond)
	}
	return player.BufferPackets(c.PacketsPerBuffer)
}

// Hold returns how long a key press sounds
func (c *Config) Hold() time.Duration {
	return time.Duration(c.HoldMS) * time.Millisecond
}
