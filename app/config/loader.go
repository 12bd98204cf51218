package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile reads the configuration document from path. "-" reads standard input.
func LoadFile(path, format string) (*Config, error) {
	if path == "-" {
		return Load(os.Stdin, format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return Load(f, format)
}

// Load decodes and validates a configuration document in the given format.
func Load(r io.Reader, format string) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	config, err := raw.resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	warnDuplicates(config.Names)

	return config, nil
}

func decode(data []byte, format string) (*rawConfig, error) {
	var raw rawConfig

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to parse YAML: empty document")
			}
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %q", format)
	}

	return &raw, nil
}

func (raw *rawConfig) resolve() (*Config, error) {
	if raw.Names == nil {
		return nil, missing("names")
	}

	requiredInts := []struct {
		field string
		value *int
	}{
		{"concurrent_requests", raw.ConcurrentRequests},
		{"concurrent_pins", raw.ConcurrentPins},
	}
	for _, f := range requiredInts {
		if f.value == nil {
			return nil, missing(f.field)
		}
	}

	if raw.IntervalMs == nil {
		return nil, missing("interval_ms")
	}

	requiredFlags := []struct {
		field string
		value *bool
	}{
		{"pin_snaphash", raw.PinSnaphash},
		{"pin_spritehash", raw.PinSpritehash},
		{"pin_videohash", raw.PinVideohash},
		{"pin_video480hash", raw.PinVideo480hash},
	}
	for _, f := range requiredFlags {
		if f.value == nil {
			return nil, missing(f.field)
		}
	}

	return &Config{
		Names:              raw.Names,
		ConcurrentRequests: *raw.ConcurrentRequests,
		ConcurrentPins:     *raw.ConcurrentPins,
		IntervalMs:         *raw.IntervalMs,
		PinSnaphash:        *raw.PinSnaphash,
		PinSpritehash:      *raw.PinSpritehash,
		PinVideohash:       *raw.PinVideohash,
		PinVideo480hash:    *raw.PinVideo480hash,
	}, nil
}

// maxIntervalMs keeps Interval() within time.Duration.
const maxIntervalMs = math.MaxInt64 / int64(time.Millisecond)

func validate(config *Config) error {
	if len(config.Names) == 0 {
		return &ValidationError{Field: "names", Reason: "at least one feed name is required"}
	}
	for i, name := range config.Names {
		if name == "" {
			return &ValidationError{Field: fmt.Sprintf("names[%d]", i), Reason: "feed name must not be empty"}
		}
	}

	if config.ConcurrentRequests < 1 {
		return &ValidationError{Field: "concurrent_requests", Reason: "must be at least 1"}
	}
	if config.ConcurrentPins < 1 {
		return &ValidationError{Field: "concurrent_pins", Reason: "must be at least 1"}
	}
	if config.IntervalMs <= 0 {
		return &ValidationError{Field: "interval_ms", Reason: "must be positive"}
	}
	if config.IntervalMs > maxIntervalMs {
		return &ValidationError{Field: "interval_ms", Reason: fmt.Sprintf("must not exceed %d", maxIntervalMs)}
	}

	return nil
}

func warnDuplicates(names []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			slog.Warn("Feed listed more than once, it will be fetched repeatedly every cycle", "feed", name)
		}
		seen[name] = true
	}
}

func missing(field string) error {
	return &ValidationError{Field: field, Reason: "missing field"}
}
