package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
)

const (
	defaultNATSStream  = "DOMA_NOTIFICATIONS"
	defaultNATSSubject = "doma.notifications"
)

// NATSSink publishes notifications as JSON to a JetStream subject. The
// notification ID is used as the message ID so JetStream drops redeliveries
// of the same upstream event.
type NATSSink struct {
	cfg    NATSConfig
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger log.Logger
}

func NewNATSSink(cfg NATSConfig, logger log.Logger) *NATSSink {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = defaultNATSStream
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultNATSSubject
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &NATSSink{cfg: cfg, logger: logger}
}

// Init implements Sink. It connects and creates the stream when missing.
func (s *NATSSink) Init(ctx context.Context, config map[string]any) error {
	conn, err := nats.Connect(s.cfg.URL,
		nats.Name("doma-sentinel"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(s.cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			conn.Close()
			return fmt.Errorf("failed to look up stream %s: %w", s.cfg.Stream, err)
		}
		s.logger.Infof("creating stream %s for subject %s", s.cfg.Stream, s.cfg.Subject)
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       s.cfg.Stream,
			Subjects:   []string{s.cfg.Subject},
			Retention:  nats.LimitsPolicy,
			Storage:    nats.FileStorage,
			MaxAge:     s.cfg.MaxAge,
			Duplicates: 10 * time.Minute,
			Replicas:   1,
		})
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	s.conn = conn
	s.js = js
	return nil
}

// Write implements Sink.
func (s *NATSSink) Write(ctx context.Context, notifications []*models.Notification) error {
	if s.js == nil {
		return errors.New("NATS sink is not initialized")
	}
	for _, n := range notifications {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		ack, err := s.js.Publish(s.cfg.Subject, data, nats.MsgId(n.ID), nats.Context(ctx))
		if err != nil {
			return fmt.Errorf("failed to publish to NATS: %w", err)
		}
		if ack.Duplicate {
			s.logger.Debugf("notification %s already published", n.ID)
		}
	}
	return nil
}

// Flush implements Sink.
func (s *NATSSink) Flush(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.FlushWithContext(ctx)
}

// Close implements Sink.
func (s *NATSSink) Close() error {
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil {
			s.conn.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}

// Type implements Sink.
func (s *NATSSink) Type() string {
	return TypeNATS
}

var _ Sink = (*NATSSink)(nil)
