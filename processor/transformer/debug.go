package transformer

import (
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor"
)

type DebugTransformer struct{}

func NewDebugTransformer() *DebugTransformer {
	return &DebugTransformer{}
}

// Process implements processor.EventProcessor.
func (d *DebugTransformer) Process(rec *models.Record) (*models.Record, error) {
	log.Debugf("Transform record: %s: %s tx=%s", rec.DomainName, rec.EventType, rec.TransactionHash)
	return rec, nil
}

var _ processor.EventProcessor = (*DebugTransformer)(nil)
