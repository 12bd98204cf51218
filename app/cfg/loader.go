package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Pinner configuration document
	ConfigPath   string `short:"c" long:"config" env:"PINNER_CONFIG" default:"-" description:"Pinner configuration document, '-' reads standard input"`
	ConfigFormat string `long:"config-format" env:"PINNER_CONFIG_FORMAT" default:"toml" choice:"toml" choice:"yaml" description:"Format of the configuration document"`

	// Remote endpoints
	SteemEndpoint  string `long:"steem-endpoint" env:"STEEM_ENDPOINT" default:"https://api.steemit.com/" description:"Steem JSON-RPC endpoint"`
	IPFSAPI        string `long:"ipfs-api" env:"IPFS_API" default:"http://127.0.0.1:5001" description:"IPFS HTTP API base URL"`
	PushgatewayURL string `long:"pushgateway-url" env:"PUSHGATEWAY_URL" description:"Prometheus Pushgateway URL, metrics are pushed after every cycle (optional)"`

	// Pipeline tuning
	RequestTimeout int     `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Feed request timeout in seconds"`
	PinTimeout     int     `long:"pin-timeout" env:"PIN_TIMEOUT" default:"300" description:"Pin request timeout in seconds"`
	FeedRateLimit  float64 `long:"feed-rate-limit" env:"FEED_RATE_LIMIT" default:"0" description:"Maximum feed requests per second, 0 disables the limit"`
	PinRetries     int     `long:"pin-retries" env:"PIN_RETRIES" default:"0" description:"Retries for pin requests failing with transport errors"`
	Schedule       string  `long:"schedule" env:"SCHEDULE" default:"fixed-rate" choice:"fixed-rate" choice:"fixed-delay" description:"Cycle scheduling policy"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"DTube Pinner/1.0" description:"User agent string for HTTP requests"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses command-line arguments and the environment. A .env file in the
// working directory is applied first when present. It returns nil, nil when
// help was requested.
func Load() (*Cfg, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	return parse(nil)
}

// loadDotEnv applies the given env files, .env by default. A missing file is
// not an error, a malformed one is.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigPath:     raw.ConfigPath,
		ConfigFormat:   raw.ConfigFormat,
		SteemEndpoint:  raw.SteemEndpoint,
		IPFSAPI:        raw.IPFSAPI,
		PushgatewayURL: raw.PushgatewayURL,
		RequestTimeout: time.Duration(raw.RequestTimeout) * time.Second,
		PinTimeout:     time.Duration(raw.PinTimeout) * time.Second,
		FeedRateLimit:  raw.FeedRateLimit,
		PinRetries:     raw.PinRetries,
		Schedule:       raw.Schedule,
		UserAgent:      raw.UserAgent,
		LogFormat:      raw.LogFormat,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	positiveFields := map[string]int{
		"request timeout": raw.RequestTimeout,
		"pin timeout":     raw.PinTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if raw.PinRetries < 0 {
		return fmt.Errorf("pin retries must be non-negative")
	}
	if raw.FeedRateLimit < 0 {
		return fmt.Errorf("feed rate limit must be non-negative")
	}
	if raw.SteemEndpoint == "" {
		return fmt.Errorf("steem endpoint is required")
	}
	if raw.IPFSAPI == "" {
		return fmt.Errorf("IPFS API URL is required")
	}

	return nil
}
