package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is the quiescence window used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Sink is a store a cart snapshot can be written to.
type Sink interface {
	Persist(ctx context.Context, c Cart) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, c Cart) error

// Persist calls f.
func (f SinkFunc) Persist(ctx context.Context, c Cart) error { return f(ctx, c) }

// State is the scheduler's position in its idle → pending → writing cycle.
type State int

const (
	// StateIdle means nothing is waiting to be written.
	StateIdle State = iota
	// StatePending means a snapshot waits for the window to elapse.
	StatePending
	// StateWriting means a snapshot is being written.
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateWriting:
		return "writing"
	}
	return "unknown"
}

type job struct {
	snapshot Cart
	sink     Sink
}

// Scheduler coalesces cart writes. Each Schedule call restarts the
// quiescence window and replaces the snapshot to be written, so only the
// latest state reaches the sink. Flush bypasses the window.
//
// Writes are serialized and every write carries a generation number; a
// write whose generation was overtaken before it started is dropped, so an
// older snapshot can never land after a newer one. Failed writes are
// logged and not retried.
type Scheduler struct {
	delay time.Duration
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	state      State
	deadline   time.Time
	timer      *time.Timer
	pending    *job
	superseded bool
	closed     bool
}

// NewScheduler returns a scheduler with the given quiescence window.
// A non-positive delay selects DefaultDebounce.
func NewScheduler(delay time.Duration, log *zap.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{delay: delay, log: log, ctx: ctx, cancel: cancel}
}

// Delay returns the quiescence window.
func (s *Scheduler) Delay() time.Duration { return s.delay }

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Deadline returns when the pending write fires; zero unless pending.
func (s *Scheduler) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return time.Time{}
	}
	return s.deadline
}

// Schedule arms (or re-arms) the window to write snapshot to sink.
// snapshot must not be modified afterwards.
func (s *Scheduler) Schedule(snapshot Cart, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.state == StateWriting {
		s.superseded = true
	}
	gen := s.bumpLocked()
	j := &job{snapshot: snapshot, sink: sink}
	s.pending = j
	s.state = StatePending
	s.deadline = time.Now().Add(s.delay)
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.write(s.ctx, gen, j); err != nil {
			s.log.Error("deferred cart write failed", zap.Error(err))
		}
	})
}

// Flush cancels any pending write and writes snapshot to sink right away,
// after a write already in flight has finished.
func (s *Scheduler) Flush(ctx context.Context, snapshot Cart, sink Sink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	gen := s.bumpLocked()
	s.mu.Unlock()

	return s.write(ctx, gen, &job{snapshot: snapshot, sink: sink})
}

// FlushPending writes the pending snapshot, if any, right away.
func (s *Scheduler) FlushPending(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.state != StatePending || s.pending == nil {
		s.mu.Unlock()
		return nil
	}
	j := s.pending
	gen := s.bumpLocked()
	s.mu.Unlock()

	return s.write(ctx, gen, j)
}

// Cancel drops the pending write, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpLocked()
	if s.state == StatePending {
		s.state = StateIdle
	}
}

// Close abandons any pending write, cancels the context of a write in
// flight and waits for it to return. Later calls are no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.bumpLocked()
	s.state = StateIdle
	s.mu.Unlock()

	s.cancel()
	// Wait for a write in flight.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
}

// bumpLocked stops the timer and starts a new generation. Callers hold mu.
func (s *Scheduler) bumpLocked() uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.gen++
	return s.gen
}

func (s *Scheduler) write(ctx context.Context, gen uint64, j *job) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.state = StateWriting
	s.superseded = false
	s.pending = nil
	s.mu.Unlock()

	err := j.sink.Persist(ctx, j.snapshot)

	s.mu.Lock()
	if gen != s.gen && s.superseded {
		s.log.Debug("cart write superseded by a newer snapshot")
	}
	if s.pending != nil {
		s.state = StatePending
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()
	return err
}
