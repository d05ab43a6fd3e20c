package models

import (
	"time"

	"github.com/google/uuid"
)

var notificationNamespace = uuid.MustParse("6f1d3c52-8a47-4f0e-9c1b-5d2e7a9b4c10")

// Notification is the unit handed to a sink.
type Notification struct {
	// ID is stable for the same upstream event so redeliveries can be deduplicated
	ID string `json:"id"`

	Text   string  `json:"message"`
	Record *Record `json:"record,omitempty"`

	// Raw is the upstream response the record was extracted from
	Raw map[string]any `json:"responseData,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewNotification builds a notification whose ID derives from the cursor and
// the record identity.
func NewNotification(text string, rec *Record, raw map[string]any, lastID string) *Notification {
	key := lastID
	if rec != nil {
		key += "|" + rec.EventID + "|" + rec.DomainName + "|" + rec.EventType + "|" + rec.TransactionHash
	} else {
		key += "|" + text
	}
	return &Notification{
		ID:        uuid.NewSHA1(notificationNamespace, []byte(key)).String(),
		Text:      text,
		Record:    rec,
		Raw:       raw,
		CreatedAt: time.Now().UTC(),
	}
}
