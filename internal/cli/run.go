package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/env"
	"github.com/roach88/commonjs/internal/trace"
)

// ExecOptions holds the flags shared by run and eval.
type ExecOptions struct {
	*RootOptions
	Include  []string // extra load paths, searched before the configured ones
	Database string

	// SessionGenerator allows overriding the trace session generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	SessionGenerator trace.SessionGenerator
}

// ExecResult is the JSON payload of run and eval.
type ExecResult struct {
	Entry string          `json:"entry"`
	Value json.RawMessage `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&ExecOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *ExecOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Require a module and print its exports",
		Long: `Require a module from the top level and print its exports as JSON.

Load paths come from -I flags, then from the config file. With neither,
the current directory is the only load path. With --db, or trace.enabled
in the config, every require is recorded in a SQLite trace database.

Exit codes:
  0 - Module loaded
  1 - Module not found, escaped its root, or failed to evaluate
  2 - Command error (bad config, database not writable, etc.)

Examples:
  cjs run main -I ./lib
  cjs run ./app/server --db ./cjs-trace.db
  cjs run config.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return execute(opts, id, cmd, func(e *env.Environment) (any, error) {
				return e.RequireValue(id)
			})
		},
	}

	addExecFlags(cmd, opts)
	return cmd
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <source>",
		Short: "Evaluate a script with a global require",
		Long: `Evaluate JavaScript source at the top level and print the value of its
last expression as JSON. The global require resolves modules the same way
run does. Pass "-" to read the source from stdin.

Examples:
  cjs eval "require('util').format('%d', 42)" -I ./lib
  echo "require('./main').version" | cjs eval -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if src == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read stdin", err)
				}
				src = string(data)
			}
			return execute(opts, "<eval>", cmd, func(e *env.Environment) (any, error) {
				return e.EvalValue("<eval>", src)
			})
		},
	}

	addExecFlags(cmd, opts)
	return cmd
}

func addExecFlags(cmd *cobra.Command, opts *ExecOptions) {
	cmd.Flags().StringArrayVarP(&opts.Include, "include", "I", nil, "add a load path (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record requires in this SQLite database")
}

// execute builds an environment, traced when a database is configured,
// runs body in it and prints the value body returns.
func execute(opts *ExecOptions, entry string, cmd *cobra.Command, body func(*env.Environment) (any, error)) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := loadSettings(opts.RootOptions, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	ctx := commandContext(cmd)

	var rec *recording
	if db := s.traceDB(opts.Database); db != "" {
		rec, err = startRecording(ctx, db, opts.SessionGenerator, s.logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
	}

	e, err := s.newEnvironment(opts.Include, tracerOf(rec))
	if err == nil && rec != nil {
		err = rec.begin(ctx, e, entry)
	}
	if err != nil {
		if rec != nil {
			_ = rec.finish()
		}
		return WrapExitError(ExitCommandError, "failed to create environment", err)
	}
	formatter.VerboseLog("load paths: %v", e.LoadPaths())

	value, runErr := body(e)
	if rec != nil {
		if err := rec.finish(); err != nil && runErr == nil {
			return WrapExitError(ExitCommandError, "failed to record trace", err)
		}
	}

	if runErr != nil {
		var details any
		if session := sessionOf(rec); session != "" {
			details = map[string]string{"session": session}
		}
		if err := formatter.Error(errorCode(runErr), runErr.Error(), details); err != nil {
			return err
		}
		return reportedError(ExitFailure, fmt.Sprintf("%s failed", entry), runErr)
	}

	indent := "  "
	if opts.Format == "json" {
		indent = ""
	}
	out, err := e.JSON(value, indent)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render value", err)
	}
	if out == "undefined" {
		out = "null"
	}

	if opts.Format == "json" {
		return formatter.SuccessWithTrace(ExecResult{Entry: entry, Value: json.RawMessage(out)}, sessionOf(rec))
	}
	return formatter.SuccessWithTrace(out, sessionOf(rec))
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
