package trace

import (
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/commonjs/internal/loader"
)

// Sink persists events as they are recorded.
type Sink interface {
	WriteEvent(ev Event) error
}

// Tracer implements loader.Tracer. Events are kept in memory and, when a
// sink is set, written through to it.
type Tracer struct {
	mu      sync.Mutex
	session string
	clock   SeqSource
	sink    Sink
	logger  *slog.Logger
	events  []Event
	err     error
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithClock sets the sequence source. Defaults to a fresh Clock.
func WithClock(c SeqSource) Option {
	return func(t *Tracer) { t.clock = c }
}

// WithSink writes every event to s.
func WithSink(s Sink) Option {
	return func(t *Tracer) { t.sink = s }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracer) { t.logger = l }
}

// NewTracer creates a tracer for session.
func NewTracer(session string, opts ...Option) *Tracer {
	t := &Tracer{session: session}
	for _, opt := range opts {
		opt(t)
	}
	if t.clock == nil {
		t.clock = NewClock()
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t
}

// Session returns the session token.
func (t *Tracer) Session() string {
	return t.session
}

// RecordRequire implements loader.Tracer.
func (t *Tracer) RecordRequire(ev loader.RequireEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := FromRequire(t.session, t.clock.Next(), ev)
	id, err := EventID(e)
	if err != nil {
		t.keep(err)
		return
	}
	e.ID = id
	t.events = append(t.events, e)

	if t.sink != nil {
		if err := t.sink.WriteEvent(e); err != nil {
			t.logger.Warn("trace sink write failed", "seq", e.Seq, "error", err)
			t.keep(err)
		}
	}
}

// keep records the first error; callers hold t.mu.
func (t *Tracer) keep(err error) {
	if t.err == nil {
		t.err = err
	}
}

// Events returns a copy of the recorded events in seq order.
func (t *Tracer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Err returns the first error hit while recording, if any.
func (t *Tracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Reset drops recorded events. The clock keeps running.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
