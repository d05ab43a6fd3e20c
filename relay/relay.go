package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor"
	"github.com/web3tea/doma-sentinel/sink"
)

// Result reports what happened to one record.
type Result struct {
	Delivered bool `json:"delivered"`
	Filtered  bool `json:"filtered"`

	// Criterion names the local filter that rejected the record, if any
	Criterion string `json:"criterion,omitempty"`
}

// Observer receives delivery outcomes, e.g. for metrics.
type Observer interface {
	ObserveDelivered(sinkType string)
	ObserveRelayError(sinkType string)
}

// Relay applies the processor chain to a record and forwards the ones that
// pass to the sink.
type Relay struct {
	proc     processor.Processor
	sink     sink.Sink
	observer Observer
	logger   log.Logger
}

type Option func(*Relay)

func WithObserver(o Observer) Option {
	return func(r *Relay) {
		r.observer = o
	}
}

func WithLogger(l log.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(proc processor.Processor, s sink.Sink, opts ...Option) *Relay {
	r := &Relay{
		proc:   proc,
		sink:   s,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay forwards message for rec. A record rejected by the filters never
// reaches the sink. lastID is only used to derive the notification ID.
func (r *Relay) Relay(ctx context.Context, message string, rec *models.Record, raw map[string]any, lastID string) (Result, error) {
	processed, err := r.proc.Process(rec)
	if err != nil {
		if processor.IsFiltered(err) {
			return Result{Filtered: true, Criterion: processor.FilteredBy(err)}, nil
		}
		return Result{}, fmt.Errorf("failed to process record: %w", err)
	}

	n := models.NewNotification(message, processed, raw, lastID)
	if err := r.sink.Write(ctx, []*models.Notification{n}); err != nil {
		if errors.Is(err, sink.ErrRemoteFiltered) {
			r.logger.Infof("relay endpoint filtered %s", processed.DomainName)
			return Result{Filtered: true}, nil
		}
		if r.observer != nil {
			r.observer.ObserveRelayError(r.sink.Type())
		}
		return Result{}, fmt.Errorf("failed to write to %s sink: %w", r.sink.Type(), err)
	}
	if err := r.sink.Flush(ctx); err != nil {
		if r.observer != nil {
			r.observer.ObserveRelayError(r.sink.Type())
		}
		return Result{}, fmt.Errorf("failed to flush %s sink: %w", r.sink.Type(), err)
	}

	if r.observer != nil {
		r.observer.ObserveDelivered(r.sink.Type())
	}
	r.logger.Infof("relayed %s (%s) to %s sink", processed.DomainName, n.ID, r.sink.Type())
	return Result{Delivered: true}, nil
}

// SinkType names the sink records are relayed to.
func (r *Relay) SinkType() string {
	return r.sink.Type()
}
