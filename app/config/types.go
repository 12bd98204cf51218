package config

import (
	"time"

	"github.com/lysyi3m/dtube-pinner/app/dtube"
)

const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Config is the pinner configuration document. It is loaded once at startup
// and never modified afterwards.
type Config struct {
	Names              []string
	ConcurrentRequests int
	ConcurrentPins     int
	IntervalMs         int64
	PinSnaphash        bool
	PinSpritehash      bool
	PinVideohash       bool
	PinVideo480hash    bool
}

// rawConfig mirrors the document on the wire. Pointer fields tell a missing
// key apart from a zero value.
type rawConfig struct {
	Names              []string `toml:"names" yaml:"names"`
	ConcurrentRequests *int     `toml:"concurrent_requests" yaml:"concurrent_requests"`
	ConcurrentPins     *int     `toml:"concurrent_pins" yaml:"concurrent_pins"`
	IntervalMs         *int64   `toml:"interval_ms" yaml:"interval_ms"`
	PinSnaphash        *bool    `toml:"pin_snaphash" yaml:"pin_snaphash"`
	PinSpritehash      *bool    `toml:"pin_spritehash" yaml:"pin_spritehash"`
	PinVideohash       *bool    `toml:"pin_videohash" yaml:"pin_videohash"`
	PinVideo480hash    *bool    `toml:"pin_video480hash" yaml:"pin_video480hash"`
}

// ValidationError reports a missing or out-of-range field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c *Config) Flags() dtube.Flags {
	return dtube.Flags{
		Snaphash:     c.PinSnaphash,
		Spritehash:   c.PinSpritehash,
		Videohash:    c.PinVideohash,
		Video480hash: c.PinVideo480hash,
	}
}
