package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/config"
	"github.com/roach88/commonjs/internal/env"
	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/trace"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeModuleNotFound   = "E002" // No load path holds the module
	ErrCodePathUnderflow    = "E003" // Relative id escapes its root
	ErrCodeScriptEvaluation = "E004" // Module body or JSON artifact failed
	ErrCodeConfigRead       = "E005" // Config file missing or unreadable
	ErrCodeConfigInvalid    = "E006" // Config does not match the schema
	ErrCodeDrift            = "E007" // Recorded requires resolve differently now
)

// errorCode maps a loader or config error to its CLI code.
func errorCode(err error) string {
	switch loader.Code(err) {
	case loader.ErrCodeModuleNotFound:
		return ErrCodeModuleNotFound
	case loader.ErrCodePathUnderflow:
		return ErrCodePathUnderflow
	case loader.ErrCodeScriptEvaluation:
		return ErrCodeScriptEvaluation
	}
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return ErrCodeConfigInvalid
	}
	return ErrCodeGeneric
}

// settings is the configuration and logger shared by one command run.
type settings struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadSettings reads --config, or ./cjs.cue when it exists, and builds the
// logger. --verbose overrides the configured level.
func loadSettings(opts *RootOptions, cmd *cobra.Command) (*settings, error) {
	path := opts.Config
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}

	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cmd.ErrOrStderr(), level)
	if path != "" {
		logger.Debug("config loaded", "path", path, "load_paths", cfg.LoadPaths)
	}
	return &settings{cfg: cfg, logger: logger}, nil
}

// newEnvironment builds an environment whose load paths are includes
// followed by the configured ones. With neither, the working directory is
// the only load path.
func (s *settings) newEnvironment(includes []string, tracer loader.Tracer) (*env.Environment, error) {
	paths := make([]string, 0, len(includes)+len(s.cfg.LoadPaths))
	paths = append(paths, includes...)
	paths = append(paths, s.cfg.LoadPaths...)
	if len(paths) == 0 {
		paths = []string{"."}
	}

	return env.New(env.Options{
		LoadPaths:             paths,
		Aliases:               s.cfg.Aliases,
		DisableDefaultAliases: !s.cfg.DefaultAliases,
		Logger:                s.logger,
		Tracer:                tracer,
	})
}

// traceDB returns the database to trace into: the --db flag, else the
// configured one when tracing is enabled, else "".
func (s *settings) traceDB(flag string) string {
	if flag != "" {
		return flag
	}
	if s.cfg.Trace.Enabled {
		return s.cfg.Trace.DB
	}
	return ""
}

// recording persists one traced session.
type recording struct {
	store  *store.Store
	tracer *trace.Tracer
	logger *slog.Logger
}

// startRecording opens db and creates a tracer for a new session. The
// session row is written by begin, once the environment exists.
func startRecording(ctx context.Context, db string, gen trace.SessionGenerator, logger *slog.Logger) (*recording, error) {
	st, err := store.Open(db)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		gen = trace.UUIDv7Generator{}
	}
	tracer := trace.NewTracer(gen.Generate(),
		trace.WithSink(st.Sink(ctx)),
		trace.WithLogger(logger),
	)
	logger.Debug("tracing requires", "db", db, "session", tracer.Session())
	return &recording{store: st, tracer: tracer, logger: logger}, nil
}

// begin writes the session row for e.
func (r *recording) begin(ctx context.Context, e *env.Environment, entry string) error {
	return r.store.WriteSession(ctx, store.Session{
		Token:     r.tracer.Session(),
		Entry:     entry,
		LoadPaths: e.LoadPaths(),
		Aliases:   e.Aliases(),
	})
}

// finish closes the store and reports the first sink failure.
func (r *recording) finish() error {
	if err := r.store.Close(); err != nil {
		r.logger.Error("error closing database", "error", err)
	}
	if err := r.tracer.Err(); err != nil {
		return fmt.Errorf("trace incomplete: %w", err)
	}
	return nil
}

// tracerOf returns r's tracer, or nil when r is nil.
func tracerOf(r *recording) loader.Tracer {
	if r == nil {
		return nil
	}
	return r.tracer
}

// sessionOf returns r's session token, or "".
func sessionOf(r *recording) string {
	if r == nil {
		return ""
	}
	return r.tracer.Session()
}
