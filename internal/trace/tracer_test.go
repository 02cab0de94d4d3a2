package trace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/commonjs/internal/loader"
)

type memSink struct {
	events []Event
	fail   bool
}

func (s *memSink) WriteEvent(ev Event) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.events = append(s.events, ev)
	return nil
}

func TestTracerRecordsInOrder(t *testing.T) {
	sink := &memSink{}
	tr := NewTracer("s-1", WithSink(sink))

	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventLoad, Caller: "topMod", Requested: "a", Canonical: "a", Path: "/lib/a.js"})
	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventFail, Caller: "a", Requested: "b", Depth: 1, Err: &loader.ModuleNotFoundError{ID: "b"}})

	events := tr.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, "load", events[0].Kind)
	assert.Equal(t, "no such module 'b'", events[1].Error)
	assert.Equal(t, 1, events[1].Depth)
	assert.Len(t, events[0].ID, 64)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.Equal(t, events, sink.events)
	assert.NoError(t, tr.Err())
}

func TestTracerIDsAreDeterministic(t *testing.T) {
	ev := loader.RequireEvent{Kind: loader.EventHit, Caller: "topMod", Requested: "x", Canonical: "x"}

	a := NewTracer("same")
	b := NewTracer("same")
	a.RecordRequire(ev)
	b.RecordRequire(ev)

	assert.Equal(t, a.Events()[0].ID, b.Events()[0].ID)

	other := NewTracer("different")
	other.RecordRequire(ev)
	assert.NotEqual(t, a.Events()[0].ID, other.Events()[0].ID)
}

func TestTracerSinkFailureIsKept(t *testing.T) {
	tr := NewTracer("s", WithSink(&memSink{fail: true}))
	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventLoad, Requested: "a"})
	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventLoad, Requested: "b"})

	assert.EqualError(t, tr.Err(), "disk full")
	assert.Len(t, tr.Events(), 2)
}

func TestTracerWithClockAndReset(t *testing.T) {
	tr := NewTracer("s", WithClock(NewClockAt(10)))
	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventLoad})
	assert.Equal(t, int64(11), tr.Events()[0].Seq)

	tr.Reset()
	assert.Empty(t, tr.Events())
	tr.RecordRequire(loader.RequireEvent{Kind: loader.EventLoad})
	assert.Equal(t, int64(12), tr.Events()[0].Seq)
}

func TestCanonicalMapOmitsEmpty(t *testing.T) {
	m := Event{Session: "s", Seq: 1, Kind: "hit", Caller: "topMod", Requested: "x"}.CanonicalMap()
	assert.NotContains(t, m, "aliased")
	assert.NotContains(t, m, "error")
	assert.NotContains(t, m, "id")
	assert.Equal(t, "x", m["requested"])
}

func TestHashWithDomain(t *testing.T) {
	// sha256("d" || 0x00 || "x")
	assert.Equal(t, hashWithDomain("d", []byte("x")), hashWithDomain("d", []byte("x")))
	assert.NotEqual(t, hashWithDomain("d", []byte("x")), hashWithDomain("dx", nil))
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Current())
}

func TestGenerators(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })

	tok := UUIDv7Generator{}.Generate()
	assert.Len(t, tok, 36)
}
