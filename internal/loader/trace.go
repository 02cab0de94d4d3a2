package loader

// EventKind classifies require events.
type EventKind string

const (
	// EventVirtual: served from a host-registered module.
	EventVirtual EventKind = "virtual"
	// EventHit: served from the cache, Pending or Settled.
	EventHit EventKind = "hit"
	// EventLoad: cache miss, module inserted and about to execute.
	EventLoad EventKind = "load"
	// EventFail: resolution or execution failed.
	EventFail EventKind = "fail"
)

// RequireEvent describes one step of a require call.
type RequireEvent struct {
	Kind EventKind

	// Caller is the canonical id of the requiring module.
	Caller string

	// Requested is the id as written by the caller.
	Requested string

	// Aliased is the substitute id when an alias applied, else "".
	Aliased string

	// Canonical is the resolved cache key. Empty when resolution failed.
	Canonical string

	Path string

	// Depth is the require nesting depth; top-level requires are 0.
	Depth int

	Err error
}

// Tracer observes require events. Implementations must not call back into
// the loader.
type Tracer interface {
	RecordRequire(ev RequireEvent)
}

type nopTracer struct{}

func (nopTracer) RecordRequire(RequireEvent) {}
