package filter

import (
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor"
)

// RejectionObserver is notified with the criterion that rejected a record.
type RejectionObserver interface {
	ObserveFiltered(criterion string)
}

// EngineFilter plugs an Engine into a processor chain.
type EngineFilter struct {
	engine   *Engine
	observer RejectionObserver
	logger   log.Logger
}

func NewEngineFilter(engine *Engine, observer RejectionObserver, logger log.Logger) *EngineFilter {
	if logger == nil {
		logger = log.Nop()
	}
	return &EngineFilter{engine: engine, observer: observer, logger: logger}
}

// Process implements processor.EventProcessor.
func (f *EngineFilter) Process(rec *models.Record) (*models.Record, error) {
	if c := f.engine.Evaluate(rec); c != "" {
		f.logger.Debugf("record %q rejected by %s filter", rec.DomainName, c)
		if f.observer != nil {
			f.observer.ObserveFiltered(c)
		}
		return rec, &processor.FilteredError{Criterion: c}
	}
	return rec, nil
}

var _ processor.EventProcessor = (*EngineFilter)(nil)
