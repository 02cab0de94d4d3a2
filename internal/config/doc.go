// Package config loads cjs settings from a CUE file (cjs.cue by default).
//
// The file is validated against the embedded #Config schema, then merged
// over built-in defaults with viper, which also applies CJS_* environment
// overrides (CJS_LOG_LEVEL, CJS_TRACE_DB, CJS_LOAD_PATHS as a comma list).
// Relative load paths and trace database paths are taken relative to the
// directory of the config file.
package config
