package sink

import (
	"context"

	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
)

type DebugSink struct{}

func NewDebugSink() *DebugSink {
	return &DebugSink{}
}

func (s *DebugSink) Init(ctx context.Context, config map[string]any) error {
	log.Debugf("DebugSink Init")
	return nil
}

// Close implements Sink.
func (s *DebugSink) Close() error {
	log.Debugf("DebugSink Close")
	return nil
}

// Flush implements Sink.
func (s *DebugSink) Flush(ctx context.Context) error {
	log.Debugf("DebugSink Flush")
	return nil
}

// Type implements Sink.
func (s *DebugSink) Type() string {
	return TypeDebug
}

// Write implements Sink.
func (s *DebugSink) Write(ctx context.Context, notifications []*models.Notification) error {
	for _, n := range notifications {
		name := ""
		if n.Record != nil {
			name = n.Record.DomainName
		}
		log.Debugf("DebugSink Write %s %s", n.ID, name)
	}
	return nil
}

var _ Sink = (*DebugSink)(nil)
