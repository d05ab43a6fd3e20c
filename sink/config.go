package sink

import "time"

const (
	TypeHTTP     = "http"
	TypeTelegram = "telegram"
	TypeNATS     = "nats"
	TypeKafka    = "kafka"
	TypeConsole  = "console"
	TypeStdout   = "stdout"
	TypeDebug    = "debug"
)

type Config struct {
	Type string `json:"type" yaml:"type" toml:"type"`

	HTTP     HTTPConfig     `json:"http,omitempty" yaml:"http,omitempty" toml:"http,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty" toml:"telegram,omitempty"`
	NATS     NATSConfig     `json:"nats,omitempty" yaml:"nats,omitempty" toml:"nats,omitempty"`
	Kafka    KafkaConfig    `json:"kafka,omitempty" yaml:"kafka,omitempty" toml:"kafka,omitempty"`

	// Options is handed to Sink.Init, e.g. {"pretty_print": false} for stdout
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

type HTTPConfig struct {
	URL     string        `json:"url" yaml:"url" toml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

type TelegramConfig struct {
	BotToken string        `json:"bot_token" yaml:"bot_token" toml:"bot_token"`
	ChatIDs  []string      `json:"chat_ids" yaml:"chat_ids" toml:"chat_ids"`
	APIURL   string        `json:"api_url" yaml:"api_url" toml:"api_url"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

type NATSConfig struct {
	URL     string        `json:"url" yaml:"url" toml:"url"`
	Stream  string        `json:"stream" yaml:"stream" toml:"stream"`
	Subject string        `json:"subject" yaml:"subject" toml:"subject"`
	MaxAge  time.Duration `json:"max_age" yaml:"max_age" toml:"max_age"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers" toml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic" toml:"topic"`
}
