package store

import (
	"context"
	"fmt"

	"github.com/roach88/commonjs/internal/trace"
)

// Session describes one traced environment.
type Session struct {
	Token     string            `json:"token"`
	Entry     string            `json:"entry,omitempty"`
	LoadPaths []string          `json:"load_paths"`
	Aliases   map[string]string `json:"aliases"`
}

// WriteSession records a session. Writing the same token twice keeps the
// first record.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("write session: empty token")
	}

	paths := sess.LoadPaths
	if paths == nil {
		paths = []string{}
	}
	pathsJSON, err := trace.MarshalCanonical(paths)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	aliases := make(map[string]any, len(sess.Aliases))
	for k, v := range sess.Aliases {
		aliases[k] = v
	}
	aliasesJSON, err := trace.MarshalCanonical(aliases)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, entry, load_paths, aliases)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, sess.Token, sess.Entry, string(pathsJSON), string(aliasesJSON))
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteEvent appends a require event. The session must exist. Duplicate
// ids, or a second event at the same (session, seq), are ignored.
func (s *Store) WriteEvent(ctx context.Context, ev trace.Event) error {
	if ev.ID == "" {
		id, err := trace.EventID(ev)
		if err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		ev.ID = id
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO require_events
		(id, session, seq, kind, caller, requested, aliased, canonical, path, depth, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.ID,
		ev.Session,
		ev.Seq,
		ev.Kind,
		ev.Caller,
		ev.Requested,
		ev.Aliased,
		ev.Canonical,
		ev.Path,
		ev.Depth,
		ev.Error,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// sink adapts a Store to trace.Sink.
type sink struct {
	ctx   context.Context
	store *Store
}

func (k sink) WriteEvent(ev trace.Event) error {
	return k.store.WriteEvent(k.ctx, ev)
}

// Sink returns a trace.Sink writing to s under ctx.
func (s *Store) Sink(ctx context.Context) trace.Sink {
	return sink{ctx: ctx, store: s}
}
