package sink

import (
	"context"
	"errors"

	"github.com/web3tea/doma-sentinel/models"
)

// ErrRemoteFiltered is returned when a relay endpoint accepted the request
// but reported the notification as filtered on its side.
var ErrRemoteFiltered = errors.New("notification filtered by remote relay")

type Sink interface {
	Init(ctx context.Context, config map[string]any) error
	Write(ctx context.Context, notifications []*models.Notification) error
	Flush(ctx context.Context) error
	Close() error
	Type() string
}
