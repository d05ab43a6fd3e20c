package sentinel

import "time"

const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

// CycleReport summarizes one fetch-extract-filter-relay-acknowledge cycle.
type CycleReport struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	Fetched   int `json:"fetched"`
	Delivered int `json:"delivered"`
	Filtered  int `json:"filtered"`

	// LastID is set only when the cursor advanced in this cycle
	LastID string `json:"lastId,omitempty"`
	Acked  bool   `json:"acked"`

	AckErr error `json:"-"`
	Err    error `json:"-"`
}

// Result classifies the cycle for metrics and logs.
func (r CycleReport) Result() string {
	switch {
	case r.Err != nil:
		return ResultError
	case r.Fetched == 0:
		return ResultEmpty
	default:
		return ResultOK
	}
}
