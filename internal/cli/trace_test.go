package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/trace"
)

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--session", "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	st.Close()

	out, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found in database.")
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	recordRun(t, writeModules(t, sampleModules), dbPath, "session-1", "main")

	out, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "nonexistent")
	require.NoError(t, err)
	assert.Contains(t, out, "No events found for session: nonexistent")
}

func TestTraceInvalidKind(t *testing.T) {
	_, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "unused.db", "--kind", "exploded")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown event kind "exploded"`)
}

func TestTraceTextOutput(t *testing.T) {
	dir := writeModules(t, sampleModules)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	recordRun(t, dir, dbPath, "session-1", "main")

	out, err := runCommand(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "=== Session session-1 ===")
	assert.Contains(t, out, "Entry:      main")
	assert.Contains(t, out, "Load paths: "+dir)
	assert.Contains(t, out, "stream=readable-stream")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "[1] load    main")
	assert.Contains(t, out, "[2]   load    ./lib/dep -> lib/dep (from main)")
	assert.Contains(t, out, "=== Stats ===")
	assert.Contains(t, out, "total:   2")
}

func TestTraceJSONOutput(t *testing.T) {
	dir := writeModules(t, sampleModules)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	recordRun(t, dir, dbPath, "session-a", "main")
	recordRun(t, dir, dbPath, "session-b", "lib/dep")

	out, err := runCommand(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sessions, 2)

	a := resp.Data.Sessions[0]
	assert.Equal(t, "session-a", a.Session.Token)
	assert.Len(t, a.Timeline, 2)
	assert.Equal(t, map[string]int{"load": 2}, a.Stats)

	b := resp.Data.Sessions[1]
	assert.Equal(t, "session-b", b.Session.Token)
	assert.Equal(t, "lib/dep", b.Session.Entry)
	require.Len(t, b.Timeline, 1)
	assert.Equal(t, "lib/dep", b.Timeline[0].Canonical)
}

func TestTraceKindFilter(t *testing.T) {
	dir := writeModules(t, sampleModules)
	dbPath := filepath.Join(t.TempDir(), "test.db")
	recordRun(t, dir, dbPath, "session-1", "main")

	out, err := runCommand(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--kind", "hit")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Sessions, 1)
	assert.Empty(t, resp.Data.Sessions[0].Timeline)
	assert.Equal(t, 2, resp.Data.Sessions[0].Stats["load"], "stats count every kind")
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   trace.Event
		want string
	}{
		{
			name: "top level load",
			ev:   trace.Event{Seq: 1, Kind: "load", Caller: "topMod", Requested: "main", Canonical: "main"},
			want: "[1] load    main",
		},
		{
			name: "aliased nested hit",
			ev:   trace.Event{Seq: 4, Kind: "hit", Caller: "app", Requested: "stream", Aliased: "readable-stream", Canonical: "readable-stream", Depth: 1},
			want: "[4]   hit     stream => readable-stream -> readable-stream (from app)",
		},
		{
			name: "failure",
			ev:   trace.Event{Seq: 2, Kind: "fail", Caller: "topMod", Requested: "nope", Error: "no such module 'nope'"},
			want: "[2] fail    nope: no such module 'nope'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEvent(tt.ev))
		})
	}
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "0190a3e2...9c4d5e6f", truncateID("0190a3e2-7b1c-7d3e-8f9a-0b1c9c4d5e6f"))
}
