package jsengine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dop251/goja"

	"github.com/roach88/commonjs/internal/loader"
)

const (
	wrapperHead = "(function (module, require, exports) {"
	wrapperTail = "\n})"
)

// Engine is a loader.Engine backed by a single goja runtime. Like the
// runtime itself it must only be used from one goroutine.
type Engine struct {
	vm *goja.Runtime
}

// New creates an engine with a fresh runtime.
func New() *Engine {
	return &Engine{vm: goja.New()}
}

// NewWithRuntime wraps an existing runtime. The runtime must not be shared
// with another Engine.
func NewWithRuntime(vm *goja.Runtime) *Engine {
	return &Engine{vm: vm}
}

// Runtime exposes the underlying runtime.
func (e *Engine) Runtime() *goja.Runtime {
	return e.vm
}

// binding is the JS `module` object of one module.
type binding struct {
	obj *goja.Object
}

func (b *binding) Exports() any {
	return b.obj.Get("exports")
}

func (b *binding) SetExports(v any) {
	_ = b.obj.Set("exports", v)
}

// NewBinding implements loader.Engine.
func (e *Engine) NewBinding(m *loader.Module) loader.Binding {
	obj := e.vm.NewObject()
	_ = obj.Set("exports", e.vm.NewObject())
	_ = obj.DefineDataProperty("id", e.vm.ToValue(m.ID), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineDataProperty("filename", e.vm.ToValue(m.Path), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return &binding{obj: obj}
}

// Run implements loader.Engine. The body runs with `this` set to exports.
func (e *Engine) Run(b loader.Binding, origin, src string, require loader.RequireFunc) error {
	mb, ok := b.(*binding)
	if !ok {
		return fmt.Errorf("jsengine: foreign binding %T", b)
	}

	prog, err := goja.Compile(origin, wrapperHead+src+wrapperTail, false)
	if err != nil {
		return err
	}
	wrapper, err := e.vm.RunProgram(prog)
	if err != nil {
		return err
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return fmt.Errorf("jsengine: %s did not compile to a function", origin)
	}

	req := e.vm.ToValue(e.RequireFunction(require))
	_ = mb.obj.Set("require", req)

	exports := mb.obj.Get("exports")
	_, err = fn(exports, mb.obj, req, exports)
	return err
}

// RequireFunction adapts require to a native JS function. Loader errors
// are thrown as GoError objects whose message is the Go error message.
func (e *Engine) RequireFunction(require loader.RequireFunc) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			panic(e.vm.NewTypeError("require: module id must be a string"))
		}
		v, err := require(arg.String())
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		return e.vm.ToValue(v)
	}
}

// ParseJSON implements loader.Engine using the runtime's JSON.parse, so
// the result is a plain script object.
func (e *Engine) ParseJSON(origin, src string) (any, error) {
	jsonObj := e.vm.Get("JSON").ToObject(e.vm)
	parse, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return nil, errors.New("jsengine: JSON.parse is not callable")
	}
	v, err := parse(jsonObj, e.vm.ToValue(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", origin, err)
	}
	return v, nil
}

// Stringify renders v with the runtime's JSON.stringify, indenting nested
// levels by indent. Values with no JSON form, such as functions and
// undefined, render as "undefined".
func (e *Engine) Stringify(v any, indent string) (string, error) {
	jsonObj := e.vm.Get("JSON").ToObject(e.vm)
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return "", errors.New("jsengine: JSON.stringify is not callable")
	}
	out, err := stringify(jsonObj, e.vm.ToValue(v), goja.Undefined(), e.vm.ToValue(indent))
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(out) {
		return "undefined", nil
	}
	return out.String(), nil
}

// Eval runs src as a top-level script named name.
func (e *Engine) Eval(name, src string) (goja.Value, error) {
	return e.vm.RunScript(name, src)
}

// SetGlobal sets a property of the global object.
func (e *Engine) SetGlobal(name string, value any) error {
	return e.vm.Set(name, value)
}

// NewObject builds a script object from fields. Go functions become
// callable script functions.
func (e *Engine) NewObject(fields map[string]any) *goja.Object {
	obj := e.vm.NewObject()
	for name, v := range fields {
		_ = obj.Set(name, v)
	}
	return obj
}

// FromGo converts Go data into plain script values. Maps with string keys
// become ordinary objects with keys in sorted order and []any becomes an
// array, recursively; anything else goes through the runtime's ToValue.
func (e *Engine) FromGo(v any) goja.Value {
	switch val := v.(type) {
	case goja.Value:
		return val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := e.vm.NewObject()
		for _, k := range keys {
			_ = obj.Set(k, e.FromGo(val[k]))
		}
		return obj
	case []any:
		items := make([]any, len(val))
		for i, elem := range val {
			items[i] = e.FromGo(elem)
		}
		return e.vm.NewArray(items...)
	default:
		return e.vm.ToValue(v)
	}
}

// Install sets value at path, starting from the global scope. Missing
// intermediate objects are created; an existing non-object on the path is
// an error. The first segment may name a top-level let/const binding.
func (e *Engine) Install(path []string, value any) error {
	if len(path) == 0 {
		return errors.New("jsengine: empty install path")
	}
	if len(path) == 1 {
		return e.vm.Set(path[0], value)
	}

	obj, err := e.root(path[0])
	if err != nil {
		return err
	}
	for i, seg := range path[1 : len(path)-1] {
		obj, err = child(e.vm, obj, seg)
		if err != nil {
			return fmt.Errorf("jsengine: %s: %w", strings.Join(path[:i+2], "."), err)
		}
	}
	return obj.Set(path[len(path)-1], value)
}

// Lookup returns the object at path, or nil when any segment is missing.
func (e *Engine) Lookup(path []string) *goja.Object {
	if len(path) == 0 {
		return e.vm.GlobalObject()
	}
	obj, ok := e.lexical(path[0])
	if !ok {
		return nil
	}
	for _, seg := range path[1:] {
		v := obj.Get(seg)
		next, ok := v.(*goja.Object)
		if !ok {
			return nil
		}
		obj = next
	}
	return obj
}

// root returns the object named name in the global scope, creating it on
// the global object when absent.
func (e *Engine) root(name string) (*goja.Object, error) {
	if obj, ok := e.lexical(name); ok {
		return obj, nil
	}
	if v := e.vm.GlobalObject().Get(name); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		return nil, fmt.Errorf("jsengine: %s is not an object", name)
	}
	obj := e.vm.NewObject()
	if err := e.vm.Set(name, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// lexical finds an object bound to name, whether it lives on the global
// object or in the global lexical scope (let/const).
func (e *Engine) lexical(name string) (*goja.Object, bool) {
	if v := e.vm.GlobalObject().Get(name); v != nil {
		obj, ok := v.(*goja.Object)
		return obj, ok
	}
	if !IsIdentifier(name) {
		return nil, false
	}
	v, err := e.vm.RunString("typeof " + name + " === 'object' ? " + name + " : undefined")
	if err != nil {
		return nil, false
	}
	obj, ok := v.(*goja.Object)
	return obj, ok
}

func child(vm *goja.Runtime, parent *goja.Object, name string) (*goja.Object, error) {
	v := parent.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		obj := vm.NewObject()
		if err := parent.Set(name, obj); err != nil {
			return nil, err
		}
		return obj, nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, errors.New("not an object")
	}
	return obj, nil
}

// Export converts a script value into a plain Go value.
func Export(v any) any {
	if gv, ok := v.(goja.Value); ok {
		if gv == nil {
			return nil
		}
		return gv.Export()
	}
	return v
}

// reserved holds the words that cannot name a binding, plus the global
// value names that scripts cannot rebind.
var reserved = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true,
	"in": true, "instanceof": true, "interface": true, "let": true,
	"new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
	"undefined": true, "NaN": true, "Infinity": true,
}

// IsIdentifier reports whether s can name a script binding: a plain
// identifier that is not a reserved word.
func IsIdentifier(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
