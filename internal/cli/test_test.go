package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/commonjs/internal/testutil"
)

const passingScenario = `name: relative
description: A module requires its sibling.
load_paths: [lib]
files:
  lib/a.js: "exports.b = require('./b').name;"
  lib/b.js: "exports.name = 'b';"
steps:
  - require: a
    expect: {b: b}
assertions:
  - type: trace_order
    modules: [a, b]
`

const failingScenario = `name: wrong-expectation
description: The expectation does not match the exports.
load_paths: [lib]
files:
  lib/a.js: "exports.value = 1;"
steps:
  - require: a
    expect: {value: 2}
`

func TestTestMissingDirectory(t *testing.T) {
	_, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestEmptyDirectory(t *testing.T) {
	out, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestPassingScenario(t *testing.T) {
	dir := writeModules(t, testutil.Files{"relative.yaml": passingScenario})

	out, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ relative")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestFailingScenario(t *testing.T) {
	dir := writeModules(t, testutil.Files{
		"a.yaml": passingScenario,
		"b.yaml": failingScenario,
	})

	out, err := runCommand(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "wrong-expectation", resp.Data.Scenarios[1].Name)
	assert.NotEmpty(t, resp.Data.Scenarios[1].Errors)
}

func TestTestFilter(t *testing.T) {
	dir := writeModules(t, testutil.Files{
		"a.yaml": passingScenario,
		"b.yaml": failingScenario,
	})

	out, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "rel*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong-expectation")
}

func TestTestInvalidFilter(t *testing.T) {
	_, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir(), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestGoldenUpdateAndCompare(t *testing.T) {
	dir := writeModules(t, testutil.Files{"relative.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "relative.golden")

	out, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ relative (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"relative"`)

	_, err = runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0o644))
	out, err = runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestInvalidScenario(t *testing.T) {
	dir := writeModules(t, testutil.Files{"bad.yaml": "name: bad\nunknown_field: true\n"})

	_, err := runCommand(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenarios")
}
