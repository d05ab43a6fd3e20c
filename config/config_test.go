package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3tea/doma-sentinel/config"
	"github.com/web3tea/doma-sentinel/sink"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "https://api-testnet.doma.xyz", cfg.Capturer.BaseURL)
	assert.Equal(t, sink.TypeHTTP, cfg.Sink.Type)
	assert.Equal(t, "http://localhost:5000/api/trigger-telegram", cfg.Sink.HTTP.URL)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "sentinel.toml", `
[capturer]
api_key = "k"
limit = 5

[poller]
interval = "30s"
autostart = true

[processor.filter]
min_price = "0.1"
domain_extensions = [".xyz"]

[sink]
type = "stdout"
`)
	cfg, err := config.LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.Capturer.APIKey)
	assert.Equal(t, 5, cfg.Capturer.Limit)
	assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
	assert.True(t, cfg.Poller.Autostart)
	assert.Equal(t, "0.1", cfg.Processor.Filter.MinPrice.String())
	assert.Equal(t, []string{".xyz"}, cfg.Processor.Filter.AllowedExtensions)
	assert.Equal(t, sink.TypeStdout, cfg.Sink.Type)

	// untouched sections keep their defaults
	assert.Equal(t, "https://api-testnet.doma.xyz", cfg.Capturer.BaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "sentinel.yaml", `
poller:
  interval: 1m
processor:
  filter:
    max_price: 2.5
    keyword: ai
api:
  addr: ":8080"
  sink:
    type: telegram
    telegram:
      bot_token: secret
      chat_ids: ["1", "2"]
`)
	cfg, err := config.LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Poller.Interval)
	require.NotNil(t, cfg.Processor.Filter.MaxPrice)
	assert.Equal(t, "2.5", cfg.Processor.Filter.MaxPrice.String())
	assert.Equal(t, "ai", cfg.Processor.Filter.Keyword)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, []string{"1", "2"}, cfg.API.Sink.Telegram.ChatIDs)
	require.NoError(t, cfg.Validate())
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "sentinel.json", `{"capturer":{"api_key":"k"},"sink":{"type":"debug"}}`)
	cfg, err := config.LoadFromFile(p)
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.Capturer.APIKey)
	assert.Equal(t, sink.TypeDebug, cfg.Sink.Type)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	p := writeFile(t, "sentinel.ini", "x=1")
	_, err := config.LoadFromFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DOMA_API_KEY":       "from-env",
		"DOMA_BASE_URL":      "https://api.doma.xyz",
		"DOMA_SINK_URL":      "http://relay:5000/api/trigger-telegram",
		"TELEGRAM_BOT_TOKEN": "token",
		"TELEGRAM_CHAT_IDS":  "1, 2,,1",
		"LOG_LEVEL":          "debug",
	}
	cfg := config.DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "from-env", cfg.Capturer.APIKey)
	assert.Equal(t, "https://api.doma.xyz", cfg.Capturer.BaseURL)
	assert.Equal(t, "http://relay:5000/api/trigger-telegram", cfg.Sink.HTTP.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "token", cfg.API.Sink.Telegram.BotToken)
	assert.Equal(t, []string{"1", "2"}, cfg.API.Sink.Telegram.ChatIDs)
}

func TestLoadAppliesDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOMA_API_KEY=dotenv-key\n"), 0o600))
	t.Setenv("DOMA_API_KEY", "")
	require.NoError(t, os.Unsetenv("DOMA_API_KEY"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Capturer.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{"zero interval", func(c *config.Config) { c.Poller.Interval = 0 }, "poller.interval"},
		{"unknown sink", func(c *config.Config) { c.Sink.Type = "carrier-pigeon" }, "sink.type"},
		{"telegram without token", func(c *config.Config) { c.Sink.Type = sink.TypeTelegram }, "bot_token"},
		{"kafka without brokers", func(c *config.Config) { c.Sink.Type = sink.TypeKafka }, "kafka.brokers"},
		{"http receiver", func(c *config.Config) { c.API.Sink.Type = sink.TypeHTTP }, "api.sink cannot be http"},
		{"inverted range", func(c *config.Config) {
			maxPrice := decimal.NewFromInt(1)
			c.Processor.Filter.MinPrice = decimal.NewFromInt(5)
			c.Processor.Filter.MaxPrice = &maxPrice
		}, "invalid price range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
