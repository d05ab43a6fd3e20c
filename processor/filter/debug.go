package filter

import (
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor"
)

type DebugFilter struct{}

func NewDebugFilter() *DebugFilter {
	return &DebugFilter{}
}

func (f *DebugFilter) Process(rec *models.Record) (*models.Record, error) {
	log.Debugf("Filter record: %s: %s price=%s", rec.DomainName, rec.EventType, rec.DisplayPrice())
	return rec, nil
}

var _ processor.EventProcessor = (*DebugFilter)(nil)
