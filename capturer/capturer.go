package capturer

import (
	"context"
	"time"
)

// Capturer pulls events from the upstream feed and acknowledges them once
// they have been handled.
type Capturer interface {
	// Fetch returns the next batch. A batch with no events means the feed is drained.
	Fetch(ctx context.Context) (*Batch, error)

	// ACK marks everything up to lastID as processed upstream.
	ACK(ctx context.Context, lastID string) error
}

type Config struct {
	BaseURL           string        `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey            string        `json:"api_key" yaml:"api_key" toml:"api_key"`
	EventTypes        []string      `json:"event_types" yaml:"event_types" toml:"event_types"`
	Limit             int           `json:"limit" yaml:"limit" toml:"limit"`
	RequestTimeout    time.Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	UserAgent         string        `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
}

const (
	DefaultBaseURL        = "https://api-testnet.doma.xyz"
	DefaultEventType      = "NAME_TOKEN_LISTED"
	DefaultLimit          = 1
	DefaultRequestTimeout = 20 * time.Second
)
