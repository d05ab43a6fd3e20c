package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"golang.org/x/time/rate"
)

const DefaultTelegramAPIURL = "https://api.telegram.org"

var ErrNoChats = errors.New("no telegram chats to deliver to")

// TelegramSink broadcasts notification text to a set of chats through the
// Bot API. Chats answering 403 have blocked the bot and are dropped.
type TelegramSink struct {
	apiURL string
	token  string
	client *http.Client
	// bot API allows about 30 messages per second across chats
	limiter *rate.Limiter
	logger  log.Logger

	mu    sync.RWMutex
	chats []string
}

func NewTelegramSink(cfg TelegramConfig, logger log.Logger) *TelegramSink {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultTelegramAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	chats := lo.Uniq(lo.Compact(lo.Map(cfg.ChatIDs, func(c string, _ int) string {
		return strings.TrimSpace(c)
	})))
	return &TelegramSink{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.BotToken,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(30), 1),
		logger:  logger,
		chats:   chats,
	}
}

// Init implements Sink.
func (s *TelegramSink) Init(ctx context.Context, config map[string]any) error {
	if s.token == "" {
		return errors.New("telegram bot token is required")
	}
	return nil
}

// Chats returns the chats still receiving broadcasts.
func (s *TelegramSink) Chats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.chats...)
}

// AddChat registers a chat for future broadcasts.
func (s *TelegramSink) AddChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lo.Contains(s.chats, chatID) {
		s.chats = append(s.chats, chatID)
	}
}

func (s *TelegramSink) removeChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = lo.Without(s.chats, chatID)
}

// Write implements Sink. A notification counts as delivered when at least
// one chat received it.
func (s *TelegramSink) Write(ctx context.Context, notifications []*models.Notification) error {
	for _, n := range notifications {
		if err := s.broadcast(ctx, n.Text); err != nil {
			return err
		}
	}
	return nil
}

func (s *TelegramSink) broadcast(ctx context.Context, text string) error {
	chats := s.Chats()
	if len(chats) == 0 {
		return ErrNoChats
	}

	sent := 0
	var errs []error
	for _, chat := range chats {
		err := s.send(ctx, chat, text)
		var apiErr *telegramError
		switch {
		case err == nil:
			sent++
		case errors.As(err, &apiErr) && apiErr.code == http.StatusForbidden:
			s.logger.Warnf("chat %s blocked the bot, removing it: %s", chat, apiErr.description)
			s.removeChat(chat)
		default:
			s.logger.Errorf("failed to send to chat %s: %v", chat, err)
			errs = append(errs, err)
		}
	}

	if sent == 0 {
		if len(errs) == 0 {
			return ErrNoChats
		}
		return fmt.Errorf("telegram broadcast failed: %w", errors.Join(errs...))
	}
	s.logger.Infof("broadcast delivered to %d/%d chats", sent, len(chats))
	return nil
}

type telegramError struct {
	code        int
	description string
}

func (e *telegramError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.code, e.description)
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *TelegramSink) send(ctx context.Context, chatID, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// the url embeds the token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read sendMessage response: %w", err)
	}

	var ar apiResponse
	_ = json.Unmarshal(raw, &ar)
	if resp.StatusCode != http.StatusOK || !ar.OK {
		code := ar.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &telegramError{code: code, description: ar.Description}
	}
	return nil
}

// Flush implements Sink.
func (s *TelegramSink) Flush(ctx context.Context) error {
	return nil
}

// Close implements Sink.
func (s *TelegramSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Type implements Sink.
func (s *TelegramSink) Type() string {
	return TypeTelegram
}

var _ Sink = (*TelegramSink)(nil)
