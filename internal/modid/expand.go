package modid

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins id segments.
const Separator = "/"

// PathUnderflowError reports a ".." that walked above the available segments.
type PathUnderflowError struct {
	// ID is the id being folded, as the caller wrote it.
	ID string

	// Base is the segment context the id was folded against.
	Base []string
}

func (e *PathUnderflowError) Error() string {
	if len(e.Base) == 0 {
		return fmt.Sprintf("module id %q escapes its root", e.ID)
	}
	return fmt.Sprintf("module id %q escapes its root (from %q)", e.ID, strings.Join(e.Base, Separator))
}

// IsUnderflow reports whether err is, or wraps, a PathUnderflowError.
func IsUnderflow(err error) bool {
	var ue *PathUnderflowError
	return errors.As(err, &ue)
}

// Split breaks an id into its segments.
func Split(id string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, Separator)
}

// Join is the inverse of Split.
func Join(segments []string) string {
	return strings.Join(segments, Separator)
}

// IsRelative reports whether any segment of id is "." or "..".
func IsRelative(id string) bool {
	for _, seg := range Split(id) {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// Expand normalizes id against the segments of the calling module.
//
// Ids without relative segments are returned unchanged. Otherwise the
// caller's leaf is dropped and the segments of id are folded onto what
// remains:
//
//	Expand([]string{"pkg", "sub", "mod"}, "./sibling") // "pkg/sub/sibling"
//	Expand([]string{"pkg", "sub", "mod"}, "../other")  // "pkg/other"
func Expand(callerSegments []string, id string) (string, error) {
	if !IsRelative(id) {
		return id, nil
	}
	folded, err := Fold(Parent(callerSegments), Split(id))
	if err != nil {
		var ue *PathUnderflowError
		if errors.As(err, &ue) {
			ue.ID = id
		}
		return "", err
	}
	return Join(folded), nil
}

// Parent returns segments without its last element. The result never
// shares a backing array with segments.
func Parent(segments []string) []string {
	if len(segments) == 0 {
		return nil
	}
	out := make([]string, len(segments)-1)
	copy(out, segments[:len(segments)-1])
	return out
}

// Fold applies segments to base and returns a new slice. "." and empty
// segments are no-ops, ".." removes the last accumulated segment.
func Fold(base, segments []string) ([]string, error) {
	acc := make([]string, len(base), len(base)+len(segments))
	copy(acc, base)

	for _, seg := range segments {
		switch seg {
		case "", ".":
		case "..":
			if len(acc) == 0 {
				return nil, &PathUnderflowError{ID: Join(segments), Base: append([]string(nil), base...)}
			}
			acc = acc[:len(acc)-1]
		default:
			acc = append(acc, seg)
		}
	}
	return acc, nil
}
