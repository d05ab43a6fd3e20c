package sentinel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/web3tea/doma-sentinel/capturer"
	"github.com/web3tea/doma-sentinel/extractor"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/relay"
	"github.com/web3tea/doma-sentinel/store"
)

// Status is the state of the poll loop.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

const (
	DefaultInterval = 15 * time.Second

	// CursorKey is the store key holding the last handled lastId.
	CursorKey = "last_id"
)

var (
	ErrAlreadyRunning  = errors.New("poller is already running")
	ErrNotRunning      = errors.New("poller is not running")
	ErrCycleInProgress = errors.New("a poll cycle is already in progress")
	ErrSentinelClosed  = errors.New("sentinel is closed")
)

// StatusReporter is notified on every status change.
type StatusReporter interface {
	ReportStatus(status Status, message string)
}

// CycleObserver receives per cycle outcomes.
type CycleObserver interface {
	ObserveCycle(report CycleReport)
	ObserveAckFailure()
	ObserveSkippedTick()
}

// Relayer forwards one formatted record downstream.
type Relayer interface {
	Relay(ctx context.Context, message string, rec *models.Record, raw map[string]any, lastID string) (relay.Result, error)
}

// Sentinel drives fetch, extract, filter, relay and acknowledge on a fixed
// interval. Cycles never overlap: a tick that fires while one is in flight
// is skipped.
type Sentinel struct {
	Capturer  capturer.Capturer
	Relay     Relayer
	Store     store.Store
	Formatter *transformer.Formatter

	Interval time.Duration

	skipAck        bool
	statusReporter StatusReporter
	observer       CycleObserver
	logger         log.Logger

	status   Status
	statusMu sync.RWMutex

	cancel   context.CancelFunc
	loopDone chan struct{}
	closed   bool

	inFlight atomic.Bool
	cycles   sync.WaitGroup
}

func NewSentinel(c capturer.Capturer, r Relayer, options ...Option) *Sentinel {
	s := &Sentinel{
		Capturer:  c,
		Relay:     r,
		Store:     store.NewMemoryStore(),
		Formatter: transformer.NewFormatter(""),
		Interval:  DefaultInterval,
		logger:    log.Nop(),
		status:    StatusIdle,
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Status returns the current state of the loop.
func (s *Sentinel) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Toggle starts the loop when idle and stops it when running. It returns
// the status after the transition.
func (s *Sentinel) Toggle(ctx context.Context) (Status, error) {
	s.statusMu.Lock()
	running := s.status == StatusRunning
	s.statusMu.Unlock()

	var err error
	if running {
		err = s.Stop()
	} else {
		err = s.Start(ctx)
	}
	// lost a race with another toggle; report where we ended up
	if errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrNotRunning) {
		err = nil
	}
	return s.Status(), err
}

// Start runs one cycle right away and then one every Interval until Stop.
func (s *Sentinel) Start(ctx context.Context) error {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if s.closed {
		return ErrSentinelClosed
	}
	if s.status == StatusRunning {
		return ErrAlreadyRunning
	}
	if s.Interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", s.Interval)
	}

	// stopping the schedule must not cancel a cycle that already started
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	go s.loop(loopCtx, s.loopDone)

	s.setStatusLocked(StatusRunning, fmt.Sprintf("polling every %s", s.Interval))
	return nil
}

// Stop cancels the schedule. A cycle already in flight runs to completion.
func (s *Sentinel) Stop() error {
	s.statusMu.Lock()
	if s.status != StatusRunning {
		s.statusMu.Unlock()
		return ErrNotRunning
	}
	s.cancel()
	done := s.loopDone
	s.cancel = nil
	s.loopDone = nil
	s.setStatusLocked(StatusIdle, "polling stopped")
	s.statusMu.Unlock()

	<-done
	return nil
}

// Close stops the loop and waits for an in-flight cycle to finish.
func (s *Sentinel) Close() error {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	s.statusMu.Lock()
	s.closed = true
	s.statusMu.Unlock()

	s.cycles.Wait()
	return nil
}

// RunOnce runs a single cycle synchronously with the caller's context.
func (s *Sentinel) RunOnce(ctx context.Context) (CycleReport, error) {
	// Close flips closed under the same lock before it waits on cycles
	s.statusMu.RLock()
	if s.closed {
		s.statusMu.RUnlock()
		return CycleReport{}, ErrSentinelClosed
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.statusMu.RUnlock()
		return CycleReport{}, ErrCycleInProgress
	}
	s.cycles.Add(1)
	s.statusMu.RUnlock()
	defer s.cycles.Done()
	defer s.inFlight.Store(false)

	report := s.runCycle(ctx)
	return report, report.Err
}

// LastID returns the cursor, or "" before the first handled batch.
func (s *Sentinel) LastID(ctx context.Context) string {
	v, err := s.Store.Get(ctx, CursorKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warnf("failed to read cursor: %v", err)
		}
		return ""
	}
	return string(v)
}

func (s *Sentinel) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.dispatch(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// both channels may be ready; never dispatch after Stop
			if ctx.Err() != nil {
				return
			}
			s.dispatch(ctx)
		}
	}
}

func (s *Sentinel) dispatch(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warnf("previous cycle still running, skipping tick")
		if s.observer != nil {
			s.observer.ObserveSkippedTick()
		}
		return
	}

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		defer s.inFlight.Store(false)
		s.runCycle(context.WithoutCancel(ctx))
	}()
}

func (s *Sentinel) runCycle(ctx context.Context) (report CycleReport) {
	report.StartedAt = time.Now()

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("poll cycle panicked: %v", r)
		}
		report.Duration = time.Since(report.StartedAt)
		s.logReport(report)
		if s.observer != nil {
			s.observer.ObserveCycle(report)
		}
	}()

	batch, err := s.Capturer.Fetch(ctx)
	if err != nil {
		report.Err = fmt.Errorf("fetch failed: %w", err)
		return report
	}
	if batch.Empty() {
		return report
	}
	report.Fetched = len(batch.Events)

	lastID := batch.LastID
	for _, ev := range batch.Events {
		rec := extractor.Extract(ev)
		msg := s.Formatter.Format(rec, lastID)

		res, err := s.Relay.Relay(ctx, msg, rec, batch.ResponseData(ev), lastID)
		if err != nil {
			report.Err = fmt.Errorf("relay of %q failed, cursor not advanced: %w", rec.DomainName, err)
			return report
		}
		switch {
		case res.Delivered:
			report.Delivered++
		case res.Filtered:
			report.Filtered++
		}
	}

	if lastID == "" {
		s.logger.Warnf("batch of %d events carried no lastId, cursor unchanged", len(batch.Events))
		return report
	}

	if !s.skipAck {
		if err := s.Capturer.ACK(ctx, lastID); err != nil {
			report.AckErr = err
			s.logger.Warnf("acknowledge of %s failed, events may be redelivered: %v", lastID, err)
			if s.observer != nil {
				s.observer.ObserveAckFailure()
			}
		} else {
			report.Acked = true
		}
	}

	// the cursor moves even when the acknowledgment failed
	if err := s.Store.Set(ctx, CursorKey, []byte(lastID)); err != nil {
		report.Err = fmt.Errorf("failed to store cursor: %w", err)
		return report
	}
	report.LastID = lastID
	return report
}

func (s *Sentinel) logReport(r CycleReport) {
	switch {
	case r.Err != nil:
		s.logger.Errorf("poll cycle failed after %s: %v", r.Duration, r.Err)
	case r.Fetched == 0:
		s.logger.Debugf("poll cycle: no new events")
	default:
		s.logger.Infof("poll cycle: fetched=%d delivered=%d filtered=%d lastId=%s acked=%t in %s",
			r.Fetched, r.Delivered, r.Filtered, r.LastID, r.Acked, r.Duration)
	}
}

func (s *Sentinel) setStatusLocked(status Status, message string) {
	s.status = status
	s.logger.Infof("poller %s: %s", status, message)

	if s.statusReporter != nil {
		s.statusReporter.ReportStatus(status, message)
	}
}
