package loader

import "github.com/roach88/commonjs/internal/resolve"

// RequireFunc is the require function handed to a module body, closed over
// the module that calls it.
type RequireFunc func(id string) (any, error)

// Engine evaluates module artifacts.
type Engine interface {
	// NewBinding creates the script-side module object for m, with an
	// empty exports container.
	NewBinding(m *Module) Binding

	// Run evaluates src as the body of the module bound by b. origin is
	// the artifact path and must appear in diagnostics.
	Run(b Binding, origin, src string, require RequireFunc) error

	// ParseJSON parses a JSON artifact into a script value.
	ParseJSON(origin, src string) (any, error)
}

// Resolver locates module artifacts. *resolve.Resolver implements it.
type Resolver interface {
	Resolve(loaderID string, callerSegments []string, id string) (resolve.Resolution, error)
}
