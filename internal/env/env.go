// Package env assembles a complete module environment: one script
// runtime, one module cache and one fixed set of load paths, with a global
// require bound to a top-level module.
//
// Environments are independent. Two environments never share a runtime, a
// cache or load paths, and an Environment must only be used from one
// goroutine.
package env

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/dop251/goja"
	"github.com/spf13/afero"

	"github.com/roach88/commonjs/internal/host"
	"github.com/roach88/commonjs/internal/jsengine"
	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/resolve"
)

// GlobalRequire is the name of the global require function.
const GlobalRequire = "require"

// Options configures an Environment.
type Options struct {
	// LoadPaths are searched in order. Relative entries are made absolute
	// against the working directory.
	LoadPaths []string

	// Aliases are merged over the default table unless
	// DisableDefaultAliases is set.
	Aliases               loader.AliasTable
	DisableDefaultAliases bool

	// FS defaults to the OS filesystem.
	FS afero.Fs

	Logger *slog.Logger
	Tracer loader.Tracer
}

// Environment is a self-contained module system.
type Environment struct {
	engine   *jsengine.Engine
	resolver *resolve.Resolver
	loader   *loader.Loader
	bridge   *host.Bridge
	top      *loader.Module
	logger   *slog.Logger
}

// New builds an environment and installs the global require.
func New(opts Options) (*Environment, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	paths := make([]string, 0, len(opts.LoadPaths))
	for _, p := range opts.LoadPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("load path %q: %w", p, err)
		}
		paths = append(paths, abs)
	}

	aliases := loader.AliasTable{}
	if !opts.DisableDefaultAliases {
		aliases = loader.DefaultAliases()
	}
	aliases = aliases.Merge(opts.Aliases)

	engine := jsengine.New()
	resolver := resolve.New(fs, paths, logger)
	cache := loader.NewCache()

	l, err := loader.New(loader.Options{
		Engine:   engine,
		Resolver: resolver,
		FS:       fs,
		Cache:    cache,
		Aliases:  aliases,
		Logger:   logger,
		Tracer:   opts.Tracer,
	})
	if err != nil {
		return nil, err
	}

	e := &Environment{
		engine:   engine,
		resolver: resolver,
		loader:   l,
		bridge:   host.NewBridge(engine, cache, logger),
		top:      loader.TopModule(),
		logger:   logger,
	}

	req := engine.RequireFunction(func(id string) (any, error) {
		return l.Require(e.top, id)
	})
	if err := engine.SetGlobal(GlobalRequire, req); err != nil {
		return nil, fmt.Errorf("install global require: %w", err)
	}

	logger.Debug("environment ready", "load_paths", paths, "aliases", len(aliases))
	return e, nil
}

// Require loads id from the top-level module and returns its exports as a
// plain Go value.
func (e *Environment) Require(id string) (any, error) {
	v, err := e.RequireValue(id)
	if err != nil {
		return nil, err
	}
	return jsengine.Export(v), nil
}

// RequireValue is Require without the conversion to Go values.
func (e *Environment) RequireValue(id string) (any, error) {
	return e.loader.Require(e.top, id)
}

// Eval runs src as a top-level script. Loader errors thrown by a require
// inside src are returned unwrapped.
func (e *Environment) Eval(name, src string) (any, error) {
	v, err := e.EvalValue(name, src)
	if err != nil {
		return nil, err
	}
	return jsengine.Export(v), nil
}

// EvalValue is Eval without the conversion to Go values.
func (e *Environment) EvalValue(name, src string) (goja.Value, error) {
	v, err := e.engine.Eval(name, src)
	if err != nil {
		if cause := loader.Cause(err); cause != err {
			return nil, cause
		}
		return nil, fmt.Errorf("eval %s: %w", name, err)
	}
	return v, nil
}

// Resolve maps id to its canonical id and file without executing anything.
// Aliases apply; virtual modules do not.
func (e *Environment) Resolve(id string) (resolve.Resolution, error) {
	target, _ := e.loader.Aliases().Lookup(id)
	res, err := e.resolver.Resolve(e.top.ID, e.top.Segments, target)
	if err != nil {
		if loader.IsUnderflow(err) {
			return resolve.Resolution{}, err
		}
		return resolve.Resolution{}, &loader.ModuleNotFoundError{ID: id}
	}
	return res, nil
}

// AttachFunctions makes fns callable from scripts under namespace.
func (e *Environment) AttachFunctions(namespace string, fns host.Functions) error {
	return e.bridge.RegisterCapabilities(namespace, fns)
}

// AttachModule registers a virtual module id whose exports hold fns.
func (e *Environment) AttachModule(id string, fns host.Functions) (*loader.Module, error) {
	return e.bridge.AttachModule(id, fns)
}

// DefineModule registers a virtual module id with the given exports. Go
// maps and slices are copied into plain script objects and arrays.
func (e *Environment) DefineModule(id string, exports any) (*loader.Module, error) {
	return e.bridge.RegisterVirtualModule(id, e.engine.FromGo(exports))
}

// JSON renders v, typically a module's exports, with JSON.stringify.
func (e *Environment) JSON(v any, indent string) (string, error) {
	return e.engine.Stringify(v, indent)
}

// Runtime returns the underlying goja runtime.
func (e *Environment) Runtime() *goja.Runtime {
	return e.engine.Runtime()
}

// Cache returns the module cache.
func (e *Environment) Cache() *loader.Cache {
	return e.loader.Cache()
}

// Aliases returns the effective alias table.
func (e *Environment) Aliases() loader.AliasTable {
	return e.loader.Aliases()
}

// LoadPaths returns a copy of the absolute load paths.
func (e *Environment) LoadPaths() []string {
	return e.resolver.LoadPaths()
}
