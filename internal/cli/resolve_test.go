package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrintsCanonicalIDs(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewResolveCommand(&RootOptions{Format: "text"}), "main", "./lib/dep.js", "-I", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "main -> main ("+filepath.Join(dir, "main.js")+")")
	assert.Contains(t, out, "./lib/dep.js -> lib/dep ("+filepath.Join(dir, "lib", "dep.js")+")")
}

func TestResolveDoesNotExecute(t *testing.T) {
	dir := writeModules(t, map[string]string{"bomb.js": "throw new Error('executed');\n"})

	out, err := runCommand(NewResolveCommand(&RootOptions{Format: "text"}), "bomb", "-I", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "bomb -> bomb")
}

func TestResolveFailures(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewResolveCommand(&RootOptions{Format: "text"}), "main", "nope", "../up", "-I", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 ids did not resolve")
	assert.Contains(t, out, "✗ nope: [E002] no such module 'nope'")
	assert.Contains(t, out, "✗ ../up: [E003]")
}

func TestResolveJSON(t *testing.T) {
	dir := writeModules(t, sampleModules)

	out, err := runCommand(NewResolveCommand(&RootOptions{Format: "json"}), "main", "stream", "-I", dir)
	require.Error(t, err, "stream aliases to a module the tree does not have")

	var resp struct {
		Status string        `json:"status"`
		Data   ResolveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, 1, resp.Data.Resolved)
	assert.Equal(t, 1, resp.Data.Failed)

	main := resp.Data.Entries[0]
	assert.Equal(t, "main", main.ID)
	assert.Equal(t, dir, main.LoadPath)

	stream := resp.Data.Entries[1]
	assert.Equal(t, ErrCodeModuleNotFound, stream.Code)
	assert.Equal(t, "no such module 'stream'", stream.Error)
}

func TestResolveRequiresArgs(t *testing.T) {
	_, err := runCommand(NewResolveCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}
