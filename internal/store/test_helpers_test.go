package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/trace"
)

// createTestStore opens a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession writes a session with a single load path.
func createTestSession(t *testing.T, s *Store, token string) {
	t.Helper()
	err := s.WriteSession(context.Background(), Session{
		Token:     token,
		Entry:     "main",
		LoadPaths: []string{"/lib"},
		Aliases:   map[string]string{"stream": "readable-stream"},
	})
	if err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
}

// createTestEvent builds a load event with its id filled in.
func createTestEvent(t *testing.T, session string, seq int64, requested string) trace.Event {
	t.Helper()
	ev := trace.Event{
		Session:   session,
		Seq:       seq,
		Kind:      "load",
		Caller:    "topMod",
		Requested: requested,
		Canonical: requested,
		Path:      "/lib/" + requested + ".js",
	}
	id, err := trace.EventID(ev)
	if err != nil {
		t.Fatalf("EventID() failed: %v", err)
	}
	ev.ID = id
	return ev
}

func loaderEvent(id string) loader.RequireEvent {
	return loader.RequireEvent{
		Kind:      loader.EventLoad,
		Caller:    loader.TopModuleID,
		Requested: id,
		Canonical: id,
		Path:      "/lib/" + id + ".js",
	}
}
