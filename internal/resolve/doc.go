// Package resolve maps module ids onto files under an ordered set of load
// paths.
//
// For each load path, in order, a candidate is tried as:
//
//  1. a sibling "<candidate>.js"
//  2. the candidate itself, as a plain file
//  3. a directory, through package.json "main" or else index.js
//
// The first hit wins. A directory without a usable entry point does not
// end the search; the next load path is tried.
//
// The returned canonical id is the cache key for the module. It drops a
// ".js" extension, keeps any other extension, and folds the sub-directory
// of a package's main file into the id so that relative requires issued
// by that file resolve against the right directory.
package resolve
