package loader

import "github.com/roach88/commonjs/internal/modid"

// State is the lifecycle stage of a Module.
type State int

const (
	// Pending: inserted into the cache, body not finished.
	Pending State = iota
	// Settled: body finished, successfully or not.
	Settled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// TopModuleID is the id of the module behind the global require.
const TopModuleID = "topMod"

// Binding is the engine-side representation of a module: the object
// scripts see as `module`, holding the live exports value.
type Binding interface {
	Exports() any
	SetExports(v any)
}

// Module is one loaded (or loading) artifact.
type Module struct {
	// ID is the canonical id and cache key.
	ID string

	// Segments is ID split on "/", the context for relative requires
	// issued by this module's body.
	Segments []string

	// Path is the resolved file. Empty for virtual and top modules.
	Path string

	State State

	// Err is set when the body failed.
	Err error

	binding Binding
}

// NewModule returns a Pending module for id.
func NewModule(id, path string) *Module {
	return &Module{
		ID:       id,
		Segments: modid.Split(id),
		Path:     path,
		State:    Pending,
	}
}

// TopModule returns the module the global require is bound to. It is
// never inserted into a cache.
func TopModule() *Module {
	m := NewModule(TopModuleID, "")
	m.State = Settled
	return m
}

// Exports returns the module's current exports value.
func (m *Module) Exports() any {
	if m.binding == nil {
		return nil
	}
	return m.binding.Exports()
}

// Binding returns the engine binding, or nil before one is attached.
func (m *Module) Binding() Binding {
	return m.binding
}

// Bind attaches an engine binding to m.
func (m *Module) Bind(b Binding) {
	m.binding = b
}

// valueBinding holds a fixed exports value for modules that have no
// engine-side module object.
type valueBinding struct {
	v any
}

func (b *valueBinding) Exports() any     { return b.v }
func (b *valueBinding) SetExports(v any) { b.v = v }
