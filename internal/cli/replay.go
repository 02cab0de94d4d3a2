package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/resolve"
	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only

	// FS is the filesystem requires are re-resolved against (for testing).
	// If nil, defaults to the OS filesystem.
	FS afero.Fs
}

// Drift is a recorded require that resolves differently today.
type Drift struct {
	Seq       int64  `json:"seq"`
	Caller    string `json:"caller"`
	Requested string `json:"requested"`
	Recorded  string `json:"recorded"`
	Current   string `json:"current"`
	Reason    string `json:"reason"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session string  `json:"session"`
	Checked int     `json:"checked"`
	Skipped int     `json:"skipped"`
	Drift   []Drift `json:"drift"`
	Stable  bool    `json:"stable"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllStable     bool                  `json:"all_stable"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return newReplayCommandWith(&ReplayOptions{RootOptions: rootOpts})
}

func newReplayCommandWith(opts *ReplayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-resolve recorded requires and report drift",
		Long: `Re-resolve every recorded require against the current filesystem, using
the load paths and aliases stored with its session, and report requires
that now resolve to a different module or file, or not at all.

Nothing is executed. Virtual module requires are skipped.

Exit codes:
  0 - Every session resolves as recorded
  1 - Drift detected
  2 - Command error (database not found, etc.)

Examples:
  cjs replay --db ./cjs-trace.db
  cjs replay --db ./cjs-trace.db --session 0190a3e2-...
  cjs replay --db ./cjs-trace.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	tokens, err := sessionTokens(ctx, st, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	result := ReplayResult{
		Sessions:  make([]ReplaySessionResult, 0, len(tokens)),
		AllStable: true,
	}
	for _, token := range tokens {
		res, err := replaySession(ctx, st, fs, token, logger)
		if errors.Is(err, store.ErrSessionNotFound) {
			return WrapExitError(ExitCommandError, "unknown session", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", token), err)
		}
		result.Sessions = append(result.Sessions, res)
		if !res.Stable {
			result.AllStable = false
		}
	}
	result.TotalSessions = len(result.Sessions)

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	if len(result.Sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}
	return outputReplayText(cmd.OutOrStdout(), result, opts.Verbose)
}

// replaySession re-resolves the requires of one session.
func replaySession(ctx context.Context, st *store.Store, fs afero.Fs, token string, logger *slog.Logger) (ReplaySessionResult, error) {
	sess, err := st.ReadSession(ctx, token)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	events, err := st.ReadEvents(ctx, token)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	resolver := resolve.New(fs, sess.LoadPaths, logger)
	out := ReplaySessionResult{Session: token, Drift: []Drift{}}
	for _, ev := range events {
		if ev.Kind == string(loader.EventVirtual) {
			out.Skipped++
			continue
		}
		out.Checked++
		if d, drifted := recheck(resolver, ev); drifted {
			out.Drift = append(out.Drift, d)
		}
	}
	out.Stable = len(out.Drift) == 0
	return out, nil
}

// recheck resolves ev again and compares the outcome with the recording.
// The alias recorded on the event is reused, so later alias changes do
// not count as drift.
func recheck(resolver *resolve.Resolver, ev trace.Event) (Drift, bool) {
	target := ev.Requested
	if ev.Aliased != "" {
		target = ev.Aliased
	}
	d := Drift{
		Seq:       ev.Seq,
		Caller:    ev.Caller,
		Requested: ev.Requested,
		Recorded:  describeResolution(ev.Canonical, ev.Path),
	}

	res, err := resolver.Resolve(ev.Caller, nil, target)
	if err != nil {
		if ev.Canonical == "" {
			return Drift{}, false
		}
		d.Current = "unresolved"
		d.Reason = "no longer resolves"
		return d, true
	}

	d.Current = describeResolution(res.ID, res.Path)
	switch {
	case ev.Canonical == "":
		d.Reason = "now resolves"
	case res.ID != ev.Canonical:
		d.Reason = "canonical id changed"
	case res.Path != ev.Path:
		d.Reason = "file changed"
	default:
		return Drift{}, false
	}
	return d, true
}

func describeResolution(id, path string) string {
	if id == "" {
		return "unresolved"
	}
	return fmt.Sprintf("%s (%s)", id, path)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllStable {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDrift,
			Message: "recorded requires resolve differently",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllStable {
		return reportedError(ExitFailure, "replay drift detected", nil)
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Stable {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, sess.Session)
		fmt.Fprintf(w, "  Requires: %d checked", sess.Checked)
		if verbose || sess.Skipped > 0 {
			fmt.Fprintf(w, ", %d virtual skipped", sess.Skipped)
		}
		fmt.Fprintln(w)

		for _, d := range sess.Drift {
			fmt.Fprintf(w, "  [%d] %s: %s\n", d.Seq, d.Requested, d.Reason)
			fmt.Fprintf(w, "       recorded: %s\n", d.Recorded)
			fmt.Fprintf(w, "       current:  %s\n", d.Current)
		}
		fmt.Fprintln(w)
	}

	if result.AllStable {
		fmt.Fprintln(w, "✓ All sessions resolve as recorded")
		return nil
	}

	fmt.Fprintln(w, "✗ Drift detected")
	return reportedError(ExitFailure, "replay drift detected", nil)
}
