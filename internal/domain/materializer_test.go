package domain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

func newTestMaterializer() Materializer {
	return NewMaterializer(adapter.NewLocalOutputFSAdapter())
}

func TestMaterializer_WritesEntries(t *testing.T) {
	root := t.TempDir()
	entries := []m.SourceEntry{
		{DeclaredPath: "webpack:///src/App.js", Content: "app"},
		{DeclaredPath: "src/util/math.js", Content: "math"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	data, err := os.ReadFile(filepath.Join(root, "webpack", "src", "App.js"))
	require.NoError(t, err)
	assert.Equal(t, "app", string(data))

	data, err = os.ReadFile(filepath.Join(root, "src", "util", "math.js"))
	require.NoError(t, err)
	assert.Equal(t, "math", string(data))
}

func TestMaterializer_VendorTrees(t *testing.T) {
	entries := []m.SourceEntry{
		{DeclaredPath: "webpack:///node_modules/react/index.js", Content: "react"},
		{DeclaredPath: "webpack:///src/index.js", Content: "index"},
	}

	t.Run("skipped by default", func(t *testing.T) {
		root := t.TempDir()

		report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

		assert.Equal(t, 1, report.Written)
		assert.Equal(t, 1, report.Skipped)
		assert.Equal(t, m.SkipVendor, report.Outcomes[0].Reason)
		assert.NoDirExists(t, filepath.Join(root, "webpack", "node_modules"))
	})

	t.Run("kept when requested", func(t *testing.T) {
		root := t.TempDir()

		report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{KeepVendorTrees: true})

		assert.Equal(t, 2, report.Written)
		assert.FileExists(t, filepath.Join(root, "webpack", "node_modules", "react", "index.js"))
	})
}

func TestMaterializer_TraversalStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	require.NoError(t, os.MkdirAll(root, 0o755))

	entries := []m.SourceEntry{
		{DeclaredPath: "../../etc/passwd", Content: "x"},
		{DeclaredPath: "../escape.js", Content: "y"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})
	assert.Equal(t, 2, report.Written)

	assert.FileExists(t, filepath.Join(root, "etc", "passwd"))
	assert.FileExists(t, filepath.Join(root, "escape.js"))
	assert.NoFileExists(t, filepath.Join(parent, "escape.js"))

	err := filepath.Walk(parent, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)

		if !info.IsDir() {
			assert.True(t, strings.HasPrefix(path, root+string(filepath.Separator)), "file outside root: %s", path)
		}

		return nil
	})
	require.NoError(t, err)
}

func TestMaterializer_UnsafePath(t *testing.T) {
	root := t.TempDir()
	entries := []m.SourceEntry{
		{DeclaredPath: "éé", Content: "x"},
		{DeclaredPath: "src/", Content: "y"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, 2, report.Skipped)

	for _, outcome := range report.Outcomes {
		assert.Equal(t, m.SkipUnsafePath, outcome.Reason)
	}
}

func TestMaterializer_Idempotent(t *testing.T) {
	root := t.TempDir()
	entries := []m.SourceEntry{
		{DeclaredPath: "src/a.js", Content: "first"},
		{DeclaredPath: "src/b.js", Content: "second"},
	}
	mt := newTestMaterializer()

	first := mt.Materialize(context.Background(), entries, m.Path(root), m.Policy{})
	second := mt.Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, first, second)

	data, err := os.ReadFile(filepath.Join(root, "src", "a.js"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	files, err := os.ReadDir(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMaterializer_DuplicatePathsLastWriteWins(t *testing.T) {
	root := t.TempDir()
	entries := []m.SourceEntry{
		{DeclaredPath: "src/a.js", Content: "one"},
		{DeclaredPath: "./src//a.js", Content: "two"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, 2, report.Written)
	assert.Equal(t, report.Outcomes[0].Path, report.Outcomes[1].Path)

	data, err := os.ReadFile(filepath.Join(root, "src", "a.js"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	files, err := os.ReadDir(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestMaterializer_SymlinkOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	outside := filepath.Join(parent, "outside")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))

	if err := os.Symlink(outside, filepath.Join(root, "src")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries := []m.SourceEntry{
		{DeclaredPath: "src/evil.js", Content: "evil"},
		{DeclaredPath: "src/deep/evil.js", Content: "evil"},
		{DeclaredPath: "lib/ok.js", Content: "ok"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, m.SkipUnsafePath, report.Outcomes[0].Reason)
	assert.Equal(t, m.SkipUnsafePath, report.Outcomes[1].Reason)
	assert.NoFileExists(t, filepath.Join(outside, "evil.js"))
	assert.NoDirExists(t, filepath.Join(outside, "deep"))
	assert.FileExists(t, filepath.Join(root, "lib", "ok.js"))
}

func TestMaterializer_FailedWrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src"), []byte("file"), 0o644))

	entries := []m.SourceEntry{
		{DeclaredPath: "src/a.js", Content: "a"},
		{DeclaredPath: "lib/b.js", Content: "b"},
	}

	report := newTestMaterializer().Materialize(context.Background(), entries, m.Path(root), m.Policy{})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, m.EntryFailed, report.Outcomes[0].Status)
	assert.NotEmpty(t, report.Outcomes[0].Error)
}

func TestMaterializer_Cancelled(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestMaterializer().Materialize(ctx, []m.SourceEntry{{DeclaredPath: "a.js", Content: "a"}}, m.Path(root), m.Policy{})

	assert.Empty(t, report.Outcomes)

	files, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMaterializer_ConcurrentWritesSamePath(t *testing.T) {
	root := t.TempDir()
	mt := newTestMaterializer()

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			content := strings.Repeat(fmt.Sprintf("%02d", i), 4096)
			report := mt.Materialize(context.Background(), []m.SourceEntry{{DeclaredPath: "shared.js", Content: content}}, m.Path(root), m.Policy{})
			assert.Equal(t, 1, report.Written)
		}(i)
	}

	wg.Wait()

	data, err := os.ReadFile(filepath.Join(root, "shared.js"))
	require.NoError(t, err)
	require.Len(t, data, 2*4096)
	assert.Equal(t, strings.Repeat(string(data[:2]), 4096), string(data))

	files, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, files, 1, "temporary files left behind")
}
