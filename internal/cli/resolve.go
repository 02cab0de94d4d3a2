package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Include []string
}

// ResolveEntry is the resolution of one id.
type ResolveEntry struct {
	Requested string `json:"requested"`
	ID        string `json:"id,omitempty"`
	Path      string `json:"path,omitempty"`
	LoadPath  string `json:"load_path,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResolveResult holds the resolve command output.
type ResolveResult struct {
	Entries  []ResolveEntry `json:"entries"`
	Resolved int            `json:"resolved"`
	Failed   int            `json:"failed"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Print canonical ids and files without executing",
		Long: `Resolve module ids from the top level and print each canonical id and
file. Aliases apply. Nothing is executed.

Exit codes:
  0 - Every id resolved
  1 - At least one id did not resolve
  2 - Command error

Examples:
  cjs resolve main ./lib/util -I .
  cjs resolve stream --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Include, "include", "I", nil, "add a load path (repeatable)")
	return cmd
}

func runResolve(opts *ResolveOptions, ids []string, cmd *cobra.Command) error {
	s, err := loadSettings(opts.RootOptions, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	e, err := s.newEnvironment(opts.Include, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create environment", err)
	}

	result := ResolveResult{Entries: make([]ResolveEntry, 0, len(ids))}
	for _, id := range ids {
		entry := ResolveEntry{Requested: id}
		res, err := e.Resolve(id)
		if err != nil {
			entry.Code = errorCode(err)
			entry.Error = err.Error()
			result.Failed++
		} else {
			entry.ID = res.ID
			entry.Path = res.Path
			entry.LoadPath = res.LoadPath
			result.Resolved++
		}
		result.Entries = append(result.Entries, entry)
	}

	if opts.Format == "json" {
		if err := outputResolveJSON(cmd, result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, entry := range result.Entries {
			if entry.Error != "" {
				fmt.Fprintf(w, "✗ %s: [%s] %s\n", entry.Requested, entry.Code, entry.Error)
				continue
			}
			fmt.Fprintf(w, "%s -> %s (%s)\n", entry.Requested, entry.ID, entry.Path)
		}
	}

	if result.Failed > 0 {
		return reportedError(ExitFailure, fmt.Sprintf("%d of %d ids did not resolve", result.Failed, len(ids)), nil)
	}
	return nil
}

func outputResolveJSON(cmd *cobra.Command, result ResolveResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}
