package capturer

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient covers timeouts and connection failures; the next cycle retries.
	ErrTransient = errors.New("transient network failure")

	// ErrUpstream is matched by every *UpstreamError.
	ErrUpstream = errors.New("upstream error")

	ErrMalformedResponse = errors.New("malformed poll response")

	// ErrAcknowledge is never escalated beyond a log line.
	ErrAcknowledge = errors.New("acknowledge failed")
)

// UpstreamError is returned when the feed answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("upstream returned %s", e.Status)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
