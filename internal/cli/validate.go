package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a config file against the schema",
		Long: `Check a cjs.cue config file against the built-in schema without
loading any modules. Defaults to --config, then ./cjs.cue.

Exit codes:
  0 - Config is valid
  1 - Config violates the schema
  2 - Config file could not be read`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.FileName
			}
			return runValidate(rootOpts, afero.NewOsFs(), path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, fs afero.Fs, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if err := formatter.Error(ErrCodeConfigRead, fmt.Sprintf("cannot read %s: %v", path, err), nil); err != nil {
			return err
		}
		return reportedError(ExitCommandError, "failed to read config", err)
	}
	formatter.VerboseLog("Validating %s (%d bytes)", path, len(data))

	if err := config.Validate(data, path); err != nil {
		var verr *config.ValidationError
		var details any
		if errors.As(err, &verr) {
			details = verr.Details
		}
		if err := formatter.Error(errorCode(err), err.Error(), details); err != nil {
			return err
		}
		return reportedError(ExitFailure, "config is invalid", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{File: path, Valid: true})
	}
	return formatter.Success(fmt.Sprintf("✓ %s is valid", path))
}
