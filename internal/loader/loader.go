package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/roach88/commonjs/internal/resolve"
)

// JSONExt marks artifacts parsed as data instead of executed.
const JSONExt = ".json"

// Options configures a Loader.
type Options struct {
	Engine   Engine
	Resolver Resolver

	// FS is read for module sources. Defaults to the OS filesystem.
	FS afero.Fs

	// Cache defaults to a fresh cache.
	Cache *Cache

	Aliases AliasTable
	Logger  *slog.Logger
	Tracer  Tracer
}

// Loader implements require for one environment.
type Loader struct {
	engine   Engine
	resolver Resolver
	fs       afero.Fs
	cache    *Cache
	aliases  AliasTable
	logger   *slog.Logger
	tracer   Tracer
	depth    int
}

// New creates a loader. Engine and Resolver are required.
func New(opts Options) (*Loader, error) {
	if opts.Engine == nil {
		return nil, errors.New("loader: engine is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("loader: resolver is required")
	}

	l := &Loader{
		engine:   opts.Engine,
		resolver: opts.Resolver,
		fs:       opts.FS,
		cache:    opts.Cache,
		aliases:  opts.Aliases,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	if l.cache == nil {
		l.cache = NewCache()
	}
	if l.aliases == nil {
		l.aliases = AliasTable{}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.tracer == nil {
		l.tracer = nopTracer{}
	}
	return l, nil
}

// Cache returns the loader's module cache.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// Aliases returns the alias table consulted by Require.
func (l *Loader) Aliases() AliasTable {
	return l.aliases
}

// Require loads id on behalf of caller and returns its exports.
//
// The steps are: apply the alias table, serve host modules, resolve the
// id, serve cache hits (Pending modules included), and on a miss insert a
// new Pending module before running its body.
func (l *Loader) Require(caller *Module, id string) (any, error) {
	ev := RequireEvent{Caller: caller.ID, Requested: id, Depth: l.depth}

	target := id
	if sub, ok := l.aliases.Lookup(id); ok {
		target = sub
		ev.Aliased = sub
	}

	if m, ok := l.cache.GetVirtual(target); ok {
		ev.Kind = EventVirtual
		ev.Canonical = m.ID
		l.tracer.RecordRequire(ev)
		return m.Exports(), nil
	}

	res, err := l.resolver.Resolve(caller.ID, caller.Segments, target)
	if err != nil {
		if errors.Is(err, resolve.ErrNotFound) {
			err = &ModuleNotFoundError{ID: id}
		}
		l.fail(ev, err)
		return nil, err
	}
	ev.Canonical = res.ID
	ev.Path = res.Path

	if m, ok := l.cache.Get(res.ID); ok {
		l.logger.Debug("module cache hit", "id", res.ID, "state", m.State.String())
		ev.Kind = EventHit
		l.tracer.RecordRequire(ev)
		return m.Exports(), nil
	}

	m := &Module{
		ID:       res.ID,
		Segments: res.Segments,
		Path:     res.Path,
		State:    Pending,
	}
	m.binding = l.engine.NewBinding(m)

	// Must be cached before the body runs so circular requires see it.
	l.cache.Put(m)
	l.logger.Debug("module cache miss, loading", "id", m.ID, "path", m.Path)
	ev.Kind = EventLoad
	l.tracer.RecordRequire(ev)

	err = l.execute(m)
	m.State = Settled
	if err != nil {
		m.Err = err
		if cur, ok := l.cache.Get(m.ID); ok && cur == m {
			l.cache.Delete(m.ID)
		}
		l.fail(ev, err)
		return nil, err
	}

	l.logger.Debug("module settled", "id", m.ID)
	return m.Exports(), nil
}

// execute runs the body of m, or parses it when it is a JSON artifact.
func (l *Loader) execute(m *Module) error {
	src, err := afero.ReadFile(l.fs, m.Path)
	if err != nil {
		return &ScriptEvaluationError{ID: m.ID, Path: m.Path, Err: fmt.Errorf("read source: %w", err)}
	}

	if strings.HasSuffix(m.Path, JSONExt) {
		v, err := l.engine.ParseJSON(m.Path, string(src))
		if err != nil {
			return &ScriptEvaluationError{ID: m.ID, Path: m.Path, Err: err}
		}
		m.binding.SetExports(v)
		return nil
	}

	l.depth++
	defer func() { l.depth-- }()

	err = l.engine.Run(m.binding, m.Path, string(src), func(id string) (any, error) {
		return l.Require(m, id)
	})
	if err == nil {
		return nil
	}
	if lerr, ok := asLoaderError(err); ok {
		return lerr
	}
	return &ScriptEvaluationError{ID: m.ID, Path: m.Path, Err: err}
}

func (l *Loader) fail(ev RequireEvent, err error) {
	ev.Kind = EventFail
	ev.Err = err
	l.logger.Debug("require failed", "requested", ev.Requested, "caller", ev.Caller, "error", err)
	l.tracer.RecordRequire(ev)
}
