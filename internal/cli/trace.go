package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
	Kind     string // optional - filter to one event kind
}

// SessionTrace is the recorded trace of one session.
type SessionTrace struct {
	Session  store.Session  `json:"session"`
	Timeline []trace.Event  `json:"timeline"`
	Stats    map[string]int `json:"stats"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Sessions []SessionTrace `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print recorded require events",
		Long: `Print the require events recorded by "cjs run --db".

For each session the output includes:
- Session: entry point, load paths and alias table in effect
- Timeline: every require in order, with its kind and depth
- Stats: event counts per kind

Examples:
  cjs trace --db ./cjs-trace.db
  cjs trace --db ./cjs-trace.db --session 0190a3e2-...
  cjs trace --db ./cjs-trace.db --kind fail --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "trace specific session only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (virtual|hit|load|fail)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Kind != "" && !isEventKind(opts.Kind) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown event kind %q", opts.Kind))
	}

	ctx := commandContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	tokens, err := sessionTokens(ctx, st, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	result := TraceResult{Sessions: make([]SessionTrace, 0, len(tokens))}
	for _, token := range tokens {
		sess, err := st.ReadSession(ctx, token)
		if errors.Is(err, store.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		events, err := st.ReadEvents(ctx, token)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read events for %s", token), err)
		}
		stats, err := st.CountEvents(ctx, token)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count events", err)
		}
		result.Sessions = append(result.Sessions, SessionTrace{
			Session:  sess,
			Timeline: filterKind(events, opts.Kind),
			Stats:    stats,
		})
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	if len(result.Sessions) == 0 {
		if opts.Session != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No events found for session: %s\n", opts.Session)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		}
		return nil
	}

	outputTraceText(cmd.OutOrStdout(), result)
	return nil
}

// sessionTokens returns []string{token} when token is set, else every
// session in the store.
func sessionTokens(ctx context.Context, st *store.Store, token string) ([]string, error) {
	if token != "" {
		return []string{token}, nil
	}
	return st.ListSessions(ctx)
}

func isEventKind(kind string) bool {
	switch loader.EventKind(kind) {
	case loader.EventVirtual, loader.EventHit, loader.EventLoad, loader.EventFail:
		return true
	}
	return false
}

func filterKind(events []trace.Event, kind string) []trace.Event {
	if kind == "" {
		return events
	}
	out := make([]trace.Event, 0, len(events))
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

func outputTraceText(w io.Writer, result TraceResult) {
	for i, st := range result.Sessions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sess := st.Session
		fmt.Fprintf(w, "=== Session %s ===\n", truncateID(sess.Token))
		if sess.Entry != "" {
			fmt.Fprintf(w, "Entry:      %s\n", sess.Entry)
		}
		fmt.Fprintf(w, "Load paths: %s\n", strings.Join(sess.LoadPaths, ", "))
		if len(sess.Aliases) > 0 {
			fmt.Fprintf(w, "Aliases:    %s\n", formatAliases(sess.Aliases))
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Timeline ===")
		for _, ev := range st.Timeline {
			fmt.Fprintln(w, formatEvent(ev))
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Stats ===")
		total := 0
		for _, kind := range []loader.EventKind{loader.EventLoad, loader.EventHit, loader.EventVirtual, loader.EventFail} {
			n := st.Stats[string(kind)]
			total += n
			fmt.Fprintf(w, "%-8s %d\n", kind+":", n)
		}
		fmt.Fprintf(w, "%-8s %d\n", "total:", total)
	}
}

// formatEvent renders one timeline line, indented by require depth.
func formatEvent(ev trace.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s%-7s %s", ev.Seq, strings.Repeat("  ", ev.Depth), ev.Kind, ev.Requested)
	if ev.Aliased != "" {
		fmt.Fprintf(&b, " => %s", ev.Aliased)
	}
	if ev.Canonical != "" && ev.Canonical != ev.Requested {
		fmt.Fprintf(&b, " -> %s", ev.Canonical)
	}
	if ev.Caller != "" && ev.Caller != loader.TopModuleID {
		fmt.Fprintf(&b, " (from %s)", ev.Caller)
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, ": %s", ev.Error)
	}
	return b.String()
}

// formatAliases renders an alias table as "a=b, c=d" in key order.
func formatAliases(aliases map[string]string) string {
	parts := make([]string, 0, len(aliases))
	for _, from := range sortedKeys(aliases) {
		parts = append(parts, from+"="+aliases[from])
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
