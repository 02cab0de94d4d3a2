// Package harness runs module-loading conformance scenarios.
//
// A scenario is a YAML file describing a fixture tree, optional virtual
// modules, a list of require/eval steps with expected values or errors,
// and assertions over the resulting require trace and module cache:
//
//	name: circular
//	description: a cycle sees partial exports
//	load_paths: [lib]
//	files:
//	  lib/a.js: |
//	    exports.value = 1;
//	    exports.seen = JSON.stringify(require('b'));
//	  lib/b.js: |
//	    exports.a = JSON.stringify(require('a'));
//	steps:
//	  - require: a
//	    expect: {value: 1, seen: '{"a":"{\"value\":1}"}'}
//	assertions:
//	  - type: trace_count
//	    kind: load
//	    count: 2
//
// Each run builds a fresh environment over an in-memory filesystem rooted
// at FixtureRoot, records the trace with a deterministic clock and a fixed
// session token, persists it to an in-memory store and evaluates the
// assertions against the events read back. RunWithGolden additionally
// compares the canonical trace against testdata/golden/<name>.golden.
package harness
