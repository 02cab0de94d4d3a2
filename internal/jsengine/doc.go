// Package jsengine runs module bodies on a goja runtime.
//
// Each body is compiled inside a function wrapper taking (module, require,
// exports), under the artifact's path so stack traces name the real file.
// Errors returned by the Go side of require are thrown into the script as
// GoError objects; they stay catchable in script code and can be recovered
// with errors.As from the *goja.Exception that reaches Go.
package jsengine
