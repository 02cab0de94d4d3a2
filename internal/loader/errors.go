package loader

import (
	"errors"
	"fmt"

	"github.com/roach88/commonjs/internal/modid"
)

// ErrorCode categorizes loader errors for diagnostics and CLI output.
type ErrorCode string

const (
	// ErrCodeModuleNotFound indicates every load path missed.
	ErrCodeModuleNotFound ErrorCode = "MODULE_NOT_FOUND"

	// ErrCodePathUnderflow indicates a relative id climbed above its root.
	ErrCodePathUnderflow ErrorCode = "PATH_UNDERFLOW"

	// ErrCodeScriptEvaluation indicates a module body or JSON artifact failed.
	ErrCodeScriptEvaluation ErrorCode = "SCRIPT_EVALUATION"
)

// ModuleNotFoundError is returned when no load path holds the module.
type ModuleNotFoundError struct {
	// ID is the id exactly as passed to require, before aliasing.
	ID string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no such module '%s'", e.ID)
}

// ScriptEvaluationError wraps a failure raised while executing a module.
type ScriptEvaluationError struct {
	ID   string
	Path string
	Err  error
}

func (e *ScriptEvaluationError) Error() string {
	return fmt.Sprintf("evaluate module %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *ScriptEvaluationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a ModuleNotFoundError.
func IsNotFound(err error) bool {
	var nf *ModuleNotFoundError
	return errors.As(err, &nf)
}

// IsEvaluation reports whether err is, or wraps, a ScriptEvaluationError.
func IsEvaluation(err error) bool {
	var se *ScriptEvaluationError
	return errors.As(err, &se)
}

// IsUnderflow reports whether err is, or wraps, a PathUnderflowError.
func IsUnderflow(err error) bool {
	return modid.IsUnderflow(err)
}

// Code returns the ErrorCode of a loader error, or "" for other errors.
func Code(err error) ErrorCode {
	switch {
	case IsNotFound(err):
		return ErrCodeModuleNotFound
	case IsUnderflow(err):
		return ErrCodePathUnderflow
	case IsEvaluation(err):
		return ErrCodeScriptEvaluation
	default:
		return ""
	}
}

// Cause returns the loader error carried by err, or err itself when it
// carries none. Use it to strip script exceptions from errors surfaced by
// top-level evaluation.
func Cause(err error) error {
	if lerr, ok := asLoaderError(err); ok {
		return lerr
	}
	return err
}

// asLoaderError extracts the outermost loader error carried by err, if
// any. Errors raised by a nested require travel back through the engine
// wrapped in script exceptions; they are returned to the caller as-is.
func asLoaderError(err error) (error, bool) {
	var nf *ModuleNotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	var ue *modid.PathUnderflowError
	if errors.As(err, &ue) {
		return ue, true
	}
	var se *ScriptEvaluationError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
