package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInitCmd() (*bytes.Buffer, func(t *testing.T, args ...string) error) {
	out := &bytes.Buffer{}

	return out, func(t *testing.T, args ...string) error {
		t.Helper()

		cmd := newRootCmd()
		cmd.AddCommand(newInitCmd())
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})

		return executeCmd(t, cmd, append([]string{"init"}, args...)...)
	}
}

func TestInitCmd_WritesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(originalWD)) })

	out, run := newTestInitCmd()
	require.NoError(t, run(t))

	targetPath := filepath.Join(tempDir, configFileName)
	info, err := os.Stat(targetPath)
	require.NoError(t, err)
	require.False(t, info.IsDir())

	contents, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "vendor_marker: node_modules")
	assert.Contains(t, string(contents), "timeout: 30s")
	assert.Contains(t, out.String(), "Wrote "+configFileName)
}

func TestInitCmd_WritesIntoDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site", "config")

	out, run := newTestInitCmd()
	require.NoError(t, run(t, dir))

	assert.FileExists(t, filepath.Join(dir, configFileName))
	assert.Contains(t, out.String(), filepath.Join(dir, configFileName))
}

func TestInitCmd_StoresHeadersFromEnvironment(t *testing.T) {
	t.Setenv("SOURCERER_HTTP_HEADERS", "Cookie: session=abc")

	dir := t.TempDir()

	_, run := newTestInitCmd()
	require.NoError(t, run(t, dir))

	contents, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "session=abc")
}

func TestInitCmd_ExistingFile(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		wantKept bool
	}{
		{name: "kept without force", wantErr: true, wantKept: true},
		{name: "replaced with force", args: []string{"--force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			targetPath := filepath.Join(dir, configFileName)
			require.NoError(t, os.WriteFile(targetPath, []byte("existing: true\n"), 0o644))

			_, run := newTestInitCmd()
			err := run(t, append([]string{dir}, tt.args...)...)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			contents, err := os.ReadFile(targetPath)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKept, string(contents) == "existing: true\n")
		})
	}
}
