// Package sinktest provides an in-memory Sink for tests.
package sinktest

import (
	"context"
	"sync"

	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/sink"
)

type MemorySink struct {
	mu      sync.Mutex
	written []*models.Notification
	writes  int

	// Err is returned by Write when set
	Err error
}

func New() *MemorySink {
	return &MemorySink{}
}

// Init implements sink.Sink.
func (m *MemorySink) Init(ctx context.Context, config map[string]any) error {
	return nil
}

// Write implements sink.Sink.
func (m *MemorySink) Write(ctx context.Context, notifications []*models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.Err != nil {
		return m.Err
	}
	m.written = append(m.written, notifications...)
	return nil
}

// Flush implements sink.Sink.
func (m *MemorySink) Flush(ctx context.Context) error {
	return nil
}

// Close implements sink.Sink.
func (m *MemorySink) Close() error {
	return nil
}

// Type implements sink.Sink.
func (m *MemorySink) Type() string {
	return "memory"
}

// Written returns the notifications accepted so far.
func (m *MemorySink) Written() []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Notification(nil), m.written...)
}

// Calls counts Write invocations, including failed ones.
func (m *MemorySink) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemorySink) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

var _ sink.Sink = (*MemorySink)(nil)
