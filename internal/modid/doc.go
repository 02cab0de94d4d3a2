// Package modid normalizes module identifiers.
//
// A module id is either bare ("lodash", "pkg/sub/mod") or relative
// ("./sibling", "../other"). Relative ids are folded against the segments
// of the module that asked for them: the caller's own leaf is dropped,
// "." is skipped and ".." pops one segment. Folding never mutates its
// inputs, so a cached segment list can be shared between callers.
//
// Popping past the first segment is an error (PathUnderflowError). A
// truncated id would silently load the wrong module.
package modid
