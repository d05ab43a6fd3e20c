package sentinel

import (
	"time"

	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/store"
)

// Option configures a Sentinel.
type Option func(*Sentinel)

// WithInterval sets the time between scheduled cycles
func WithInterval(interval time.Duration) Option {
	return func(s *Sentinel) {
		if interval > 0 {
			s.Interval = interval
		}
	}
}

// WithStore sets where the cursor is kept
func WithStore(st store.Store) Option {
	return func(s *Sentinel) {
		if st != nil {
			s.Store = st
		}
	}
}

func WithFormatter(f *transformer.Formatter) Option {
	return func(s *Sentinel) {
		if f != nil {
			s.Formatter = f
		}
	}
}

// WithSkipAck leaves events unacknowledged upstream, for dry runs
func WithSkipAck(skip bool) Option {
	return func(s *Sentinel) {
		s.skipAck = skip
	}
}

func WithStatusReporter(r StatusReporter) Option {
	return func(s *Sentinel) {
		s.statusReporter = r
	}
}

func WithObserver(o CycleObserver) Option {
	return func(s *Sentinel) {
		s.observer = o
	}
}

func WithLogger(l log.Logger) Option {
	return func(s *Sentinel) {
		if l != nil {
			s.logger = l
		}
	}
}
