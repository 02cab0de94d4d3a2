package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/commonjs/internal/trace"
)

// ErrSessionNotFound is returned by ReadSession for unknown tokens.
var ErrSessionNotFound = errors.New("session not found")

// ListSessions returns all session tokens in ascending order. UUIDv7 tokens
// therefore list oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token FROM sessions ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return tokens, nil
}

// ReadSession loads one session record.
func (s *Store) ReadSession(ctx context.Context, token string) (Session, error) {
	var (
		sess        Session
		pathsJSON   string
		aliasesJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, entry, load_paths, aliases FROM sessions WHERE token = ?
	`, token).Scan(&sess.Token, &sess.Entry, &pathsJSON, &aliasesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal([]byte(pathsJSON), &sess.LoadPaths); err != nil {
		return Session{}, fmt.Errorf("read session %s: load_paths: %w", token, err)
	}
	if err := json.Unmarshal([]byte(aliasesJSON), &sess.Aliases); err != nil {
		return Session{}, fmt.Errorf("read session %s: aliases: %w", token, err)
	}
	return sess, nil
}

// ReadEvents returns the events of a session in seq order. An unknown
// session yields an empty slice.
func (s *Store) ReadEvents(ctx context.Context, session string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, seq, kind, caller, requested, aliased, canonical, path, depth, error
		FROM require_events
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var ev trace.Event
		if err := rows.Scan(
			&ev.ID,
			&ev.Session,
			&ev.Seq,
			&ev.Kind,
			&ev.Caller,
			&ev.Requested,
			&ev.Aliased,
			&ev.Canonical,
			&ev.Path,
			&ev.Depth,
			&ev.Error,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountEvents returns the number of events per kind for a session.
func (s *Store) CountEvents(ctx context.Context, session string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM require_events
		WHERE session = ?
		GROUP BY kind
		ORDER BY kind COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
