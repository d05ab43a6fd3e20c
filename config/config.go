package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/web3tea/doma-sentinel/api"
	"github.com/web3tea/doma-sentinel/capturer"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/sentinel"
	"github.com/web3tea/doma-sentinel/sink"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	AppName string `json:"app_name" yaml:"app_name" toml:"app_name"`

	Log       log.Config      `json:"log" yaml:"log" toml:"log"`
	Capturer  capturer.Config `json:"capturer" yaml:"capturer" toml:"capturer"`
	Poller    PollerConfig    `json:"poller" yaml:"poller" toml:"poller"`
	Processor ProcessorConfig `json:"processor" yaml:"processor" toml:"processor"`
	Sink      sink.Config     `json:"sink" yaml:"sink" toml:"sink"`
	API       api.Config      `json:"api" yaml:"api" toml:"api"`
	Explorer  ExplorerConfig  `json:"explorer" yaml:"explorer" toml:"explorer"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
}

type PollerConfig struct {
	Interval  time.Duration `json:"interval" yaml:"interval" toml:"interval"`
	Autostart bool          `json:"autostart" yaml:"autostart" toml:"autostart"`

	// SkipAck leaves the upstream cursor untouched, for dry runs
	SkipAck bool `json:"skip_ack" yaml:"skip_ack" toml:"skip_ack"`
}

type ProcessorConfig struct {
	// Filter is active at startup until reconfigured over the API
	Filter models.FilterConfig `json:"filter" yaml:"filter" toml:"filter"`

	ChecksumAddresses bool `json:"checksum_addresses" yaml:"checksum_addresses" toml:"checksum_addresses"`
	Debug             bool `json:"debug" yaml:"debug" toml:"debug"`
}

type ExplorerConfig struct {
	URL string `json:"url" yaml:"url" toml:"url"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
}

// DefaultConfig polls the testnet feed and relays to the local API, which
// prints what it receives on the console.
func DefaultConfig() Config {
	return Config{
		AppName: "doma-sentinel",
		Log: log.Config{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Capturer: capturer.Config{
			BaseURL:        capturer.DefaultBaseURL,
			EventTypes:     []string{capturer.DefaultEventType},
			Limit:          capturer.DefaultLimit,
			RequestTimeout: capturer.DefaultRequestTimeout,
		},
		Poller: PollerConfig{
			Interval: sentinel.DefaultInterval,
		},
		Processor: ProcessorConfig{
			Filter: models.DefaultFilterConfig(),
		},
		Sink: sink.Config{
			Type: sink.TypeHTTP,
			HTTP: sink.HTTPConfig{URL: sink.DefaultRelayURL, Timeout: capturer.DefaultRequestTimeout},
		},
		API: api.Config{
			Addr:            api.DefaultAddr,
			ShutdownTimeout: 5 * time.Second,
			Sink:            sink.Config{Type: sink.TypeConsole},
		},
		Explorer: ExplorerConfig{URL: transformer.DefaultExplorerURL},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "doma_sentinel"},
	}
}

// Load reads path when it is not empty, then applies .env and environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", path)
	}

	return &config, nil
}

// LoadDotEnv loads the given files, or ./.env, into the environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv
// outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("DOMA_API_KEY"); v != "" {
		c.Capturer.APIKey = v
	}
	if v := getenv("DOMA_BASE_URL"); v != "" {
		c.Capturer.BaseURL = v
	}
	if v := getenv("DOMA_SINK_URL"); v != "" {
		c.Sink.HTTP.URL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// both sink sections may be telegram: the poller's or the API receiver's
	token := getenv("TELEGRAM_BOT_TOKEN")
	chats := splitList(getenv("TELEGRAM_CHAT_IDS"))
	for _, sc := range []*sink.Config{&c.Sink, &c.API.Sink} {
		if token != "" {
			sc.Telegram.BotToken = token
		}
		if len(chats) > 0 {
			sc.Telegram.ChatIDs = chats
		}
	}
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	return lo.Uniq(lo.Compact(parts))
}

// Validate checks the fields each configured component needs.
func (c *Config) Validate() error {
	var errs []error

	if c.Capturer.BaseURL == "" {
		errs = append(errs, errors.New("capturer.base_url is required"))
	}
	if c.Capturer.Limit < 0 {
		errs = append(errs, fmt.Errorf("capturer.limit must not be negative, got %d", c.Capturer.Limit))
	}
	if c.Poller.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poller.interval must be positive, got %s", c.Poller.Interval))
	}
	if err := filter.Validate(c.Processor.Filter.Normalized()); err != nil {
		errs = append(errs, fmt.Errorf("processor.filter: %w", err))
	}
	if err := validateSink("sink", c.Sink); err != nil {
		errs = append(errs, err)
	}
	if err := validateSink("api.sink", c.API.Sink); err != nil {
		errs = append(errs, err)
	}
	// an http receiver sink would post back to this server
	if c.API.Sink.Type == sink.TypeHTTP {
		errs = append(errs, errors.New("api.sink cannot be http"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validateSink(section string, sc sink.Config) error {
	if !lo.Contains(sink.Types(), sc.Type) {
		return fmt.Errorf("%s.type %q is not one of %v", section, sc.Type, sink.Types())
	}
	switch sc.Type {
	case sink.TypeHTTP:
		if sc.HTTP.URL == "" {
			return fmt.Errorf("%s.http.url is required", section)
		}
	case sink.TypeTelegram:
		if sc.Telegram.BotToken == "" {
			return fmt.Errorf("%s.telegram.bot_token is required (or TELEGRAM_BOT_TOKEN)", section)
		}
	case sink.TypeKafka:
		if len(sc.Kafka.Brokers) == 0 {
			return fmt.Errorf("%s.kafka.brokers is required", section)
		}
	}
	return nil
}
