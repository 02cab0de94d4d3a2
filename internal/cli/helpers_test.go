package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/commonjs/internal/resolve"
	"github.com/roach88/commonjs/internal/testutil"
	"github.com/roach88/commonjs/internal/trace"
)

// sampleModules is a two-module tree: main requires lib/dep relatively.
var sampleModules = testutil.Files{
	"main.js": `exports.name = "app";
exports.dep = require('./lib/dep').value;
`,
	"lib/dep.js": "exports.value = 42;\n",
}

// writeModules writes files into a fresh temp directory and returns it.
func writeModules(t *testing.T, files testutil.Files) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, afero.NewOsFs(), dir, files)
	return dir
}

// runCommand executes cmd with args and returns what it wrote to stdout.
func runCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordRun runs "cjs run id -I dir --db dbPath" under session token.
func recordRun(t *testing.T, dir, dbPath, token, id string) {
	t.Helper()
	opts := &ExecOptions{
		RootOptions:      &RootOptions{Format: "text"},
		SessionGenerator: trace.NewFixedGenerator(token),
	}
	if _, err := runCommand(newRunCommandWith(opts), id, "-I", dir, "--db", dbPath); err != nil {
		t.Fatalf("record run: %v", err)
	}
}

func newTestResolver(fs afero.Fs) *resolve.Resolver {
	return resolve.New(fs, []string{"/lib"}, nil)
}
