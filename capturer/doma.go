package capturer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/web3tea/doma-sentinel/pkg/log"
	"golang.org/x/time/rate"
)

const (
	pollPath   = "/v1/poll"
	ackPath    = "/v1/poll/ack/"
	headerKey  = "Api-Key"
	maxErrBody = 512
)

type DomaCapturer struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

type DomaOption func(*DomaCapturer)

// WithHTTPClient replaces the default client. The request timeout is still
// applied per request through the context.
func WithHTTPClient(client *http.Client) DomaOption {
	return func(d *DomaCapturer) {
		if client != nil {
			d.client = client
		}
	}
}

func WithLogger(logger log.Logger) DomaOption {
	return func(d *DomaCapturer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDomaCapturer(cfg Config, opts ...DomaOption) *DomaCapturer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.EventTypes) == 0 {
		cfg.EventTypes = []string{DefaultEventType}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	d := &DomaCapturer{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type pollResponse struct {
	Events []Event          `json:"events"`
	LastID *json.RawMessage `json:"lastId"`
}

// Fetch implements Capturer.
func (d *DomaCapturer) Fetch(ctx context.Context) (*Batch, error) {
	q := url.Values{}
	q.Set("eventTypes", strings.Join(d.cfg.EventTypes, ","))
	q.Set("limit", strconv.Itoa(d.cfg.Limit))

	body, err := d.do(ctx, http.MethodGet, d.cfg.BaseURL+pollPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp pollResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	lastID, err := decodeLastID(resp.LastID)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Events: make([]Event, 0, len(resp.Events)),
		LastID: lastID,
	}
	for _, ev := range resp.Events {
		if ev == nil {
			continue
		}
		batch.Events = append(batch.Events, ev)
	}

	d.logger.Debugf("fetched %d events, lastId=%q", len(batch.Events), batch.LastID)
	return batch, nil
}

// ACK implements Capturer.
func (d *DomaCapturer) ACK(ctx context.Context, lastID string) error {
	if lastID == "" {
		return fmt.Errorf("%w: empty lastId", ErrAcknowledge)
	}
	if _, err := d.do(ctx, http.MethodPost, d.cfg.BaseURL+ackPath+url.PathEscape(lastID)); err != nil {
		return fmt.Errorf("%w: %w", ErrAcknowledge, err)
	}
	d.logger.Debugf("acknowledged lastId=%s", lastID)
	return nil
}

func (d *DomaCapturer) do(ctx context.Context, method, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransient, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerKey, d.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransient, method, redact(target), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(strings.TrimSpace(string(body)), maxErrBody),
		}
	}
	return body, nil
}

// decodeLastID accepts the cursor either as a JSON string or a JSON number.
func decodeLastID(raw *json.RawMessage) (string, error) {
	if raw == nil {
		return "", nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(*raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: lastId: %v", ErrMalformedResponse, err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string, json.Number:
		return scalarString(t), nil
	default:
		return "", fmt.Errorf("%w: unexpected lastId type %T", ErrMalformedResponse, v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsTransient reports whether err is expected to clear up on the next cycle.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrUpstream)
}

var _ Capturer = (*DomaCapturer)(nil)
