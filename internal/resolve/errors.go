package resolve

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no load path yields an artifact.
var ErrNotFound = errors.New("module not found")

// PackageDescriptorParseError reports a package.json that is not valid JSON.
// The resolver never returns it; it is logged and the descriptor is treated
// as absent.
type PackageDescriptorParseError struct {
	Path string
	Err  error
}

func (e *PackageDescriptorParseError) Error() string {
	return fmt.Sprintf("parse package descriptor %s: %v", e.Path, e.Err)
}

func (e *PackageDescriptorParseError) Unwrap() error {
	return e.Err
}
