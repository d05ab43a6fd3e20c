package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
)

const DefaultRelayURL = "http://localhost:5000/api/trigger-telegram"

// RelayRequest is the body posted to a relay endpoint.
type RelayRequest struct {
	Message      string         `json:"message"`
	ResponseData map[string]any `json:"responseData,omitempty"`
}

// RelayResponse is what a relay endpoint answers.
type RelayResponse struct {
	Success  bool   `json:"success"`
	Filtered bool   `json:"filtered"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HTTPSink posts each notification to a relay endpoint, typically another
// instance's /api/trigger-telegram.
type HTTPSink struct {
	url    string
	client *http.Client
	logger log.Logger
}

func NewHTTPSink(cfg HTTPConfig, logger log.Logger) *HTTPSink {
	if cfg.URL == "" {
		cfg.URL = DefaultRelayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &HTTPSink{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Init implements Sink.
func (s *HTTPSink) Init(ctx context.Context, config map[string]any) error {
	if u, ok := config["url"].(string); ok && u != "" {
		s.url = u
	}
	return nil
}

// Write implements Sink. When the endpoint reports every notification as
// filtered, ErrRemoteFiltered is returned.
func (s *HTTPSink) Write(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	filtered := 0
	for _, n := range notifications {
		err := s.post(ctx, n)
		switch {
		case errors.Is(err, ErrRemoteFiltered):
			filtered++
		case err != nil:
			return err
		}
	}
	if filtered == len(notifications) {
		return ErrRemoteFiltered
	}
	return nil
}

func (s *HTTPSink) post(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(RelayRequest{Message: n.Text, ResponseData: n.Raw})
	if err != nil {
		return fmt.Errorf("failed to marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", n.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to relay: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}

	var rr RelayResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &rr); err != nil {
			return fmt.Errorf("failed to decode relay response: %w", err)
		}
	}
	if rr.Filtered {
		s.logger.Debugf("relay filtered notification %s", n.ID)
		return ErrRemoteFiltered
	}
	return nil
}

// Flush implements Sink.
func (s *HTTPSink) Flush(ctx context.Context) error {
	return nil
}

// Close implements Sink.
func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Type implements Sink.
func (s *HTTPSink) Type() string {
	return TypeHTTP
}

var _ Sink = (*HTTPSink)(nil)
