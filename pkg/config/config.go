// Package config loads runtime settings from YAML.
//
//	log:
//	  level: info
//	  time_format: "%H:%M:%S"
//	  color: auto
//	memory:
//	  limit: 128M
//	channel:
//	  default_capacity: 16
//	diagnostics:
//	  track_owners: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"phpcore/pkg/logging"
	"phpcore/pkg/memory"
)

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Memory      MemoryConfig      `yaml:"memory"`
	Channel     ChannelConfig     `yaml:"channel"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Color      string `yaml:"color"`
}

type MemoryConfig struct {
	Limit ByteSize `yaml:"limit"`
}

type ChannelConfig struct {
	DefaultCapacity int `yaml:"default_capacity"`
}

type DiagnosticsConfig struct {
	// TrackOwners makes lock holders identify themselves so the last owner
	// of each mutex can be reported
	TrackOwners bool `yaml:"track_owners"`
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "warn",
			TimeFormat: logging.DefaultTimeFormat,
			Color:      "auto",
		},
		Memory:  MemoryConfig{Limit: 128 << 20},
		Channel: ChannelConfig{DefaultCapacity: 16},
	}
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("config: log.level: unknown level %q", c.Log.Level)
	}
	if _, err := logging.ParseColorMode(c.Log.Color); err != nil {
		return fmt.Errorf("config: log.color: %w", err)
	}
	if c.Memory.Limit < 0 && int64(c.Memory.Limit) != memory.Unlimited {
		return fmt.Errorf("config: memory.limit: %d is negative", int64(c.Memory.Limit))
	}
	if c.Channel.DefaultCapacity < 0 {
		return fmt.Errorf("config: channel.default_capacity: %d is negative", c.Channel.DefaultCapacity)
	}
	return nil
}

// NewLogger builds a logger from the log section. c must be valid.
func (c Config) NewLogger(w io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	color, _ := logging.ParseColorMode(c.Log.Color)
	return logging.New(w, logging.Options{
		Level:      level,
		TimeFormat: c.Log.TimeFormat,
		Color:      color,
	})
}

// ApplyMemoryLimit installs the configured limit on the default limiter
func (c Config) ApplyMemoryLimit() {
	memory.Default().SetLimit(int64(c.Memory.Limit))
}

// ByteSize is a byte count written either as a plain integer or with a
// K, M or G suffix. -1 means unlimited.
type ByteSize int64

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: byte size must be a scalar", node.Line)
	}
	n, err := ParseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = n
	return nil
}

func (b ByteSize) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (b ByteSize) String() string {
	n := int64(b)
	switch {
	case n < 0:
		return "-1"
	case n != 0 && n%(1<<30) == 0:
		return strconv.FormatInt(n>>30, 10) + "G"
	case n != 0 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + "M"
	case n != 0 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + "K"
	}
	return strconv.FormatInt(n, 10)
}

// ParseByteSize parses shorthand like 128M. Suffixes are case-insensitive
// and binary.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty byte size")
	}
	shift := 0
	switch s[len(s)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	}
	digits := s
	if shift > 0 {
		digits = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	if n < 0 {
		if n == -1 && shift == 0 {
			return ByteSize(memory.Unlimited), nil
		}
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	if n > math.MaxInt64>>shift {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return ByteSize(n << shift), nil
}
