package testutil

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemFS(t *testing.T) {
	fs := MemFS(t, "/root", Files{
		"a.js":             "exports.a = 1;",
		"pkg/package.json": `{"main": "lib/main.js"}`,
	})

	data, err := afero.ReadFile(fs, "/root/a.js")
	require.NoError(t, err)
	assert.Equal(t, "exports.a = 1;", string(data))

	isDir, err := afero.IsDir(fs, "/root/pkg")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestFixedSessionGenerator(t *testing.T) {
	assert.Equal(t, DefaultSession, NewFixedSessionGenerator("").Generate())

	gen := NewFixedSessionGenerator("s-1")
	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-1", gen.Generate())
}
