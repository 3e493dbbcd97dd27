package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

func TestLocalOutputFSAdapter_WriteFileAtomic(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and overwrites", func(t *testing.T) {
		adapter := NewLocalOutputFSAdapter()
		path := filepath.Join(t.TempDir(), "app.js")

		require.NoError(t, adapter.WriteFileAtomic(ctx, m.Path(path), []byte("first")))
		require.NoError(t, adapter.WriteFileAtomic(ctx, m.Path(path), []byte("second")))

		got, err := adapter.ReadFile(ctx, m.Path(path))
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		adapter := NewLocalOutputFSAdapter()
		root := t.TempDir()

		require.NoError(t, adapter.WriteFileAtomic(ctx, m.Path(filepath.Join(root, "a.js")), []byte("a")))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a.js", entries[0].Name())
	})

	t.Run("missing parent directory fails", func(t *testing.T) {
		adapter := NewLocalOutputFSAdapter()
		path := filepath.Join(t.TempDir(), "missing", "a.js")

		err := adapter.WriteFileAtomic(ctx, m.Path(path), []byte("a"))
		require.Error(t, err)
	})

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		adapter := NewLocalOutputFSAdapter()
		path := filepath.Join(t.TempDir(), "a.js")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := adapter.WriteFileAtomic(cancelled, m.Path(path), []byte("a"))
		require.ErrorIs(t, err, context.Canceled)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("concurrent writers never produce mixed content", func(t *testing.T) {
		adapter := NewLocalOutputFSAdapter()
		path := filepath.Join(t.TempDir(), "shared.js")

		contents := []string{
			strings.Repeat("a", 64*1024),
			strings.Repeat("b", 64*1024),
			strings.Repeat("c", 64*1024),
		}

		var wg sync.WaitGroup
		for _, content := range contents {
			wg.Add(1)

			go func() {
				defer wg.Done()
				assert.NoError(t, adapter.WriteFileAtomic(ctx, m.Path(path), []byte(content)))
			}()
		}
		wg.Wait()

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, contents, string(got))
	})
}

func TestLocalOutputFSAdapter_DirState(t *testing.T) {
	ctx := context.Background()
	adapter := NewLocalOutputFSAdapter()

	t.Run("missing directory", func(t *testing.T) {
		exists, empty, err := adapter.DirState(ctx, m.Path(filepath.Join(t.TempDir(), "nope")))
		require.NoError(t, err)
		assert.False(t, exists)
		assert.True(t, empty)
	})

	t.Run("empty directory", func(t *testing.T) {
		exists, empty, err := adapter.DirState(ctx, m.Path(t.TempDir()))
		require.NoError(t, err)
		assert.True(t, exists)
		assert.True(t, empty)
	})

	t.Run("non-empty directory", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "old.js"), "x")

		exists, empty, err := adapter.DirState(ctx, m.Path(root))
		require.NoError(t, err)
		assert.True(t, exists)
		assert.False(t, empty)
	})

	t.Run("regular file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		writeTestFile(t, path, "x")

		_, _, err := adapter.DirState(ctx, m.Path(path))
		require.Error(t, err)
	})
}

func TestLocalOutputFSAdapter_ClearDirAndMkdirAll(t *testing.T) {
	ctx := context.Background()
	adapter := NewLocalOutputFSAdapter()

	root := t.TempDir()
	nested := filepath.Join(root, "src", "components")
	require.NoError(t, adapter.MkdirAll(ctx, m.Path(nested)))
	require.NoError(t, adapter.MkdirAll(ctx, m.Path(nested)))
	writeTestFile(t, filepath.Join(nested, "Button.jsx"), "x")

	require.NoError(t, adapter.ClearDir(ctx, m.Path(root)))

	exists, empty, err := adapter.DirState(ctx, m.Path(root))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, empty)
}

func TestLocalOutputFSAdapter_Abs(t *testing.T) {
	adapter := NewLocalOutputFSAdapter()

	got, err := adapter.Abs(context.Background(), m.Path("out/../out"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(string(got)))
	assert.Equal(t, "out", filepath.Base(string(got)))
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLocalOutputFSAdapter_Contains(t *testing.T) {
	ctx := context.Background()
	adapter := NewLocalOutputFSAdapter()

	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	outside := filepath.Join(parent, "outside")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))

	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing directory", filepath.Join(root, "src", "a.js"), true},
		{"missing directories", filepath.Join(root, "new", "deep", "a.js"), true},
		{"root itself", root, false},
		{"sibling", filepath.Join(outside, "a.js"), false},
		{"through symlink", filepath.Join(root, "linked", "a.js"), false},
		{"below symlink", filepath.Join(root, "linked", "x", "a.js"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.Contains(ctx, m.Path(root), m.Path(tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
