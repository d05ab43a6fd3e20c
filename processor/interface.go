package processor

import (
	"errors"

	"github.com/web3tea/doma-sentinel/models"
)

// ErrFiltered is returned by a filter that rejects a record.
var ErrFiltered = errors.New("record filtered")

type EventProcessor interface {
	Process(rec *models.Record) (*models.Record, error)
}

type ProcessorComposite interface {
	AddFilter(processor EventProcessor)
	AddTransformer(processor EventProcessor)
}

type Processor interface {
	EventProcessor
	ProcessorComposite
}

// FilteredError carries the name of the criterion that rejected a record.
type FilteredError struct {
	Criterion string
}

func (e *FilteredError) Error() string {
	if e.Criterion == "" {
		return ErrFiltered.Error()
	}
	return ErrFiltered.Error() + " by " + e.Criterion
}

func (e *FilteredError) Is(target error) bool {
	return target == ErrFiltered
}

// IsFiltered reports whether err is a rejection rather than a failure.
func IsFiltered(err error) bool {
	return errors.Is(err, ErrFiltered)
}

// FilteredBy returns the rejecting criterion carried by err, if any.
func FilteredBy(err error) string {
	var fe *FilteredError
	if errors.As(err, &fe) {
		return fe.Criterion
	}
	return ""
}
