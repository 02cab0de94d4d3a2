package resolve

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/commonjs/internal/modid"
)

// ScriptExt is the only extension inferred and stripped from canonical ids.
const ScriptExt = ".js"

// Resolution is a located artifact.
type Resolution struct {
	// ID is the canonical id, used as the cache key.
	ID string

	// Segments is ID split into segments. Modules loaded from this
	// resolution use it as the context for their own relative requires.
	Segments []string

	// Path is the file that holds the module body.
	Path string

	// LoadPath is the root the artifact was found under.
	LoadPath string
}

// Resolver finds module artifacts under a fixed, ordered set of load paths.
type Resolver struct {
	fs        afero.Fs
	loadPaths []string
	logger    *slog.Logger
}

// New creates a resolver. loadPaths is copied; later changes to the slice
// do not affect the resolver.
func New(fs afero.Fs, loadPaths []string, logger *slog.Logger) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		fs:        fs,
		loadPaths: append([]string(nil), loadPaths...),
		logger:    logger,
	}
}

// LoadPaths returns a copy of the configured load paths.
func (r *Resolver) LoadPaths() []string {
	return append([]string(nil), r.loadPaths...)
}

// Resolve locates id as requested by the module loaderID whose segments are
// callerSegments. If callerSegments is nil, loaderID is split instead.
//
// Errors are *modid.PathUnderflowError for relative ids that climb above
// their context, and a wrapped ErrNotFound when every load path misses.
func (r *Resolver) Resolve(loaderID string, callerSegments []string, id string) (Resolution, error) {
	if callerSegments == nil {
		callerSegments = modid.Split(loaderID)
	}

	expanded, err := modid.Expand(callerSegments, id)
	if err != nil {
		return Resolution{}, err
	}
	// Empty segments ("foo/", "a//b") must not reach the canonical id.
	segments, err := modid.Fold(nil, modid.Split(expanded))
	if err != nil {
		return Resolution{}, err
	}
	if len(segments) == 0 {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for _, root := range r.loadPaths {
		res, ok := r.resolveIn(root, segments)
		if !ok {
			continue
		}
		res.ID = norm.NFC.String(res.ID)
		res.Segments = modid.Split(res.ID)
		res.LoadPath = root
		r.logger.Debug("resolved module",
			"requested", id,
			"loader", loaderID,
			"id", res.ID,
			"path", res.Path)
		return res, nil
	}

	return Resolution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// resolveIn tries segments under a single load path.
func (r *Resolver) resolveIn(root string, segments []string) (Resolution, bool) {
	candidate := filepath.Join(root, filepath.Join(segments...))

	if p := candidate + ScriptExt; isFile(r.fs, p) {
		return Resolution{ID: modid.Join(segments), Path: p}, true
	}

	if isFile(r.fs, candidate) {
		return Resolution{ID: modid.Join(stripScriptExt(segments)), Path: candidate}, true
	}

	if isDir(r.fs, candidate) {
		return r.resolveDir(root, candidate, segments)
	}

	return Resolution{}, false
}

// resolveDir finds the entry point of a directory: the descriptor's main
// file if it exists, else index.js.
func (r *Resolver) resolveDir(root, dir string, segments []string) (Resolution, bool) {
	desc, err := readDescriptor(r.fs, dir)
	if err != nil {
		r.logger.Warn("ignoring package descriptor", "dir", dir, "error", err)
	}

	if desc != nil && desc.Main != "" {
		if res, ok := r.resolveMain(root, segments, desc.Main); ok {
			return res, true
		}
		r.logger.Debug("package main not found, trying index", "dir", dir, "main", desc.Main)
	}

	if p := filepath.Join(dir, IndexName); isFile(r.fs, p) {
		id := modid.Join(append(append([]string(nil), segments...), strings.TrimSuffix(IndexName, ScriptExt)))
		return Resolution{ID: id, Path: p}, true
	}

	return Resolution{}, false
}

// resolveMain folds main onto the package segments. A main that climbs
// out of the package is ignored.
func (r *Resolver) resolveMain(root string, pkg []string, main string) (Resolution, bool) {
	mainSegs := modid.Split(filepath.ToSlash(main))
	folded, err := modid.Fold(pkg, mainSegs)
	if err != nil || len(folded) <= len(pkg) || !hasPrefix(folded, pkg) {
		return Resolution{}, false
	}

	candidate := filepath.Join(root, filepath.Join(folded...))

	if !strings.HasSuffix(candidate, ScriptExt) {
		if p := candidate + ScriptExt; isFile(r.fs, p) {
			return Resolution{ID: modid.Join(folded), Path: p}, true
		}
	}
	if isFile(r.fs, candidate) {
		return Resolution{ID: modid.Join(stripScriptExt(folded)), Path: candidate}, true
	}
	if p := filepath.Join(candidate, IndexName); isFile(r.fs, p) {
		id := modid.Join(append(stripScriptExt(folded), strings.TrimSuffix(IndexName, ScriptExt)))
		return Resolution{ID: id, Path: p}, true
	}
	return Resolution{}, false
}

// stripScriptExt returns a copy of segments with ".js" removed from the leaf.
func stripScriptExt(segments []string) []string {
	out := append([]string(nil), segments...)
	if n := len(out); n > 0 {
		if trimmed := strings.TrimSuffix(out[n-1], ScriptExt); trimmed != "" {
			out[n-1] = trimmed
		}
	}
	return out
}

func hasPrefix(segments, prefix []string) bool {
	if len(segments) < len(prefix) {
		return false
	}
	for i := range prefix {
		if segments[i] != prefix[i] {
			return false
		}
	}
	return true
}
