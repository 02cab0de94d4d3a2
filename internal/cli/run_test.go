package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/commonjs/internal/loader"
	"github.com/roach88/commonjs/internal/store"
	"github.com/roach88/commonjs/internal/testutil"
	"github.com/roach88/commonjs/internal/trace"
)

func TestRunPrintsExports(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "text"}), "main", "-I", dir)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"app","dep":42}`, out)
	assert.Contains(t, out, "\n  \"name\": \"app\"", "text output is indented")
}

func TestRunJSONFormat(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "json"}), "main", "-I", dir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ExecResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "main", resp.Data.Entry)
	assert.JSONEq(t, `{"name":"app","dep":42}`, string(resp.Data.Value))
}

func TestRunJSONArtifact(t *testing.T) {
	dir := writeModules(t, testutil.Files{
		"settings.json": `{"port": 8080, "hosts": ["a", "b"]}`,
	})

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "text"}), "settings.json", "-I", dir)
	require.NoError(t, err)
	assert.JSONEq(t, `{"port":8080,"hosts":["a","b"]}`, out)
}

func TestRunIncludeOrder(t *testing.T) {
	first := writeModules(t, testutil.Files{"util.js": "exports.from = 'first';\n"})
	second := writeModules(t, testutil.Files{"util.js": "exports.from = 'second';\n"})

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "text"}), "util", "-I", first, "-I", second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"first"}`, out)
}

func TestRunModuleNotFound(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "text"}), "missing", "-I", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.True(t, loader.IsNotFound(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Contains(t, out, "no such module 'missing'")
}

func TestRunEvaluationError(t *testing.T) {
	dir := writeModules(t, testutil.Files{"broken.js": "throw new Error('boom');\n"})

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "json"}), "broken", "-I", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScriptEvaluation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "boom")
}

func TestRunMissingConfig(t *testing.T) {
	_, err := runCommand(NewRunCommand(&RootOptions{Format: "text", Config: "/nonexistent/cjs.cue"}), "main")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunUsesConfigLoadPaths(t *testing.T) {
	dir := writeModules(t, testutil.Files{
		"cjs.cue":     "load_paths: [\"lib\"]\naliases: {\"app\": \"main\"}\n",
		"lib/main.js": "exports.ok = true;\n",
		"main.js":     "exports.ok = false;\n",
	})

	out, err := runCommand(NewRunCommand(&RootOptions{Format: "text", Config: filepath.Join(dir, "cjs.cue")}), "app")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)
}

func TestRunRecordsTrace(t *testing.T) {
	dir := writeModules(t, sampleModules)
	dbPath := filepath.Join(t.TempDir(), "trace.db")

	opts := &ExecOptions{RootOptions: &RootOptions{Format: "json"}, SessionGenerator: trace.NewFixedGenerator("session-1")}
	out, err := runCommand(newRunCommandWith(opts), "main", "-I", dir, "--db", dbPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "session-1", resp.TraceID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sess, err := st.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "main", sess.Entry)
	assert.Equal(t, []string{dir}, sess.LoadPaths)
	assert.Equal(t, "readable-stream", sess.Aliases["stream"])

	events, err := st.ReadEvents(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "load", events[0].Kind)
	assert.Equal(t, loader.TopModuleID, events[0].Caller)
	assert.Equal(t, "main", events[0].Canonical)
	assert.Equal(t, 0, events[0].Depth)

	assert.Equal(t, "load", events[1].Kind)
	assert.Equal(t, "main", events[1].Caller)
	assert.Equal(t, "./lib/dep", events[1].Requested)
	assert.Equal(t, "lib/dep", events[1].Canonical)
	assert.Equal(t, 1, events[1].Depth)
}

func TestRunRecordsFailedRequire(t *testing.T) {
	dir := writeModules(t, sampleModules)
	dbPath := filepath.Join(t.TempDir(), "trace.db")

	opts := &ExecOptions{RootOptions: &RootOptions{Format: "text"}, SessionGenerator: trace.NewFixedGenerator("session-1")}
	_, err := runCommand(newRunCommandWith(opts), "nope", "-I", dir, "--db", dbPath)
	require.Error(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	counts, err := st.CountEvents(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"fail": 1}, counts)
}

func TestRunBadDatabase(t *testing.T) {
	dir := writeModules(t, sampleModules)

	_, err := runCommand(NewRunCommand(&RootOptions{Format: "text"}), "main", "-I", dir, "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestEvalWithRequire(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewEvalCommand(&RootOptions{Format: "text"}), "require('./lib/dep').value + 1", "-I", dir)
	require.NoError(t, err)
	assert.Equal(t, "43\n", out)
}

func TestEvalFromStdin(t *testing.T) {
	cmd := NewEvalCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader("[1, 2].map(function (n) { return n * 2; })"))

	out, err := runCommand(cmd, "-")
	require.NoError(t, err)
	assert.JSONEq(t, `[2, 4]`, out)
}

func TestEvalUndefinedPrintsNull(t *testing.T) {
	out, err := runCommand(NewEvalCommand(&RootOptions{Format: "text"}), "undefined")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestEvalUncaughtLoaderError(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewEvalCommand(&RootOptions{Format: "text"}), "require('../escape')", "-I", dir)
	require.Error(t, err)
	assert.True(t, loader.IsUnderflow(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestEvalSyntaxError(t *testing.T) {
	out, err := runCommand(NewEvalCommand(&RootOptions{Format: "text"}), "function (")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E001]")
}
