// Package host lets Go code expose native functions and pre-built modules
// to scripts.
package host

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/commonjs/internal/jsengine"
	"github.com/roach88/commonjs/internal/loader"
)

// Functions maps script-visible names to Go functions.
type Functions map[string]any

// Names returns the function names in sorted order.
func (f Functions) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MethodsOf collects the exported methods of recv, named with a lower-case
// first letter: a method PlusTwo is exposed as plusTwo.
func MethodsOf(recv any) Functions {
	v := reflect.ValueOf(recv)
	t := v.Type()
	fns := make(Functions, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		fns[lowerFirst(m.Name)] = v.Method(i).Interface()
	}
	return fns
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

// Bridge installs host capabilities into one environment.
type Bridge struct {
	engine *jsengine.Engine
	cache  *loader.Cache
	logger *slog.Logger
}

// NewBridge creates a bridge over engine and cache.
func NewBridge(engine *jsengine.Engine, cache *loader.Cache, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{engine: engine, cache: cache, logger: logger}
}

// RegisterCapabilities makes fns callable from scripts under namespace,
// e.g. "arith" or `foo["arith"]`. Missing objects along the namespace are
// created; existing functions with the same names are replaced.
func (b *Bridge) RegisterCapabilities(namespace string, fns Functions) error {
	path, err := ParseNamespace(namespace)
	if err != nil {
		return err
	}

	for _, name := range fns.Names() {
		if name == "" {
			return fmt.Errorf("register capabilities under %s: empty function name", namespace)
		}
		fn := fns[name]
		if reflect.TypeOf(fn) == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
			return fmt.Errorf("register capabilities under %s: %s is %T, not a function", namespace, name, fn)
		}
		full := append(append([]string(nil), path...), name)
		if err := b.engine.Install(full, fn); err != nil {
			return fmt.Errorf("register capabilities under %s: %w", namespace, err)
		}
	}

	b.logger.Debug("registered capabilities", "namespace", namespace, "count", len(fns))
	return nil
}

// RegisterVirtualModule makes exports requirable as id without touching the
// filesystem. It replaces an earlier virtual module with the same id.
func (b *Bridge) RegisterVirtualModule(id string, exports any) (*loader.Module, error) {
	if id == "" {
		return nil, fmt.Errorf("register virtual module: empty id")
	}
	m := b.cache.PutVirtual(id, exports)
	b.logger.Debug("registered virtual module", "id", id)
	return m, nil
}

// AttachModule registers a virtual module id whose exports object holds
// fns. The returned module's exports may be extended further by the host.
func (b *Bridge) AttachModule(id string, fns Functions) (*loader.Module, error) {
	for _, name := range fns.Names() {
		if reflect.TypeOf(fns[name]) == nil || reflect.TypeOf(fns[name]).Kind() != reflect.Func {
			return nil, fmt.Errorf("attach module %s: %s is %T, not a function", id, name, fns[name])
		}
	}
	return b.RegisterVirtualModule(id, b.engine.NewObject(fns))
}
