package processor

import (
	"sync"

	"github.com/web3tea/doma-sentinel/models"
)

type ProcessorChain struct {
	filterProcessor      []EventProcessor
	transformerProcessor []EventProcessor
	lk                   sync.RWMutex
}

func NewProcessorChain() Processor {
	return &ProcessorChain{
		filterProcessor:      make([]EventProcessor, 0),
		transformerProcessor: make([]EventProcessor, 0),
	}
}

// Process runs every filter and then every transformer. The first error
// stops the chain and is returned together with the record as it was at
// that point.
func (pc *ProcessorChain) Process(rec *models.Record) (*models.Record, error) {
	pc.lk.RLock()
	steps := make([]EventProcessor, 0, len(pc.filterProcessor)+len(pc.transformerProcessor))
	steps = append(steps, pc.filterProcessor...)
	steps = append(steps, pc.transformerProcessor...)
	pc.lk.RUnlock()

	current := rec.Clone()
	for _, p := range steps {
		processed, err := p.Process(current)
		if err != nil {
			return current, err
		}
		if processed != nil {
			current = processed
		}
	}
	return current, nil
}

func (pc *ProcessorChain) AddFilter(processor EventProcessor) {
	pc.lk.Lock()
	defer pc.lk.Unlock()

	pc.filterProcessor = append(pc.filterProcessor, processor)
}

func (pc *ProcessorChain) AddTransformer(processor EventProcessor) {
	pc.lk.Lock()
	defer pc.lk.Unlock()

	pc.transformerProcessor = append(pc.transformerProcessor, processor)
}

var _ Processor = (*ProcessorChain)(nil)
