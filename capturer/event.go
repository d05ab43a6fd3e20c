package capturer

// Event is a raw upstream event. Its shape differs between event types and is
// not guaranteed to be stable, so it is kept as a generic map.
type Event map[string]any

// ID returns the upstream event id when present.
func (e Event) ID() string {
	return scalarString(e["id"])
}

// Batch is one page of the poll feed.
type Batch struct {
	Events []Event `json:"events"`

	// LastID is the cursor to acknowledge after the events have been handled
	LastID string `json:"lastId,omitempty"`
}

// Empty reports whether the batch carries no events.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Events) == 0
}

// ResponseData rebuilds the upstream response shape around a single event,
// the form relay endpoints expect as "responseData".
func (b *Batch) ResponseData(ev Event) map[string]any {
	data := map[string]any{
		"events": []any{map[string]any(ev)},
	}
	if b != nil && b.LastID != "" {
		data["lastId"] = b.LastID
	}
	return data
}
