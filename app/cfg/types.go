package cfg

import "time"

type Cfg struct {
	// Pinner configuration document
	ConfigPath   string
	ConfigFormat string

	// Remote endpoints
	SteemEndpoint  string
	IPFSAPI        string
	PushgatewayURL string

	// Pipeline tuning
	RequestTimeout time.Duration
	PinTimeout     time.Duration
	FeedRateLimit  float64
	PinRetries     int
	Schedule       string

	// Application metadata
	UserAgent string
	LogFormat string
	Debug     bool
	Version   string
}
