// Package adapter contains the I/O adapters used by the reconstruction
// workflow: HTTP fetching, link discovery, the output filesystem and report
// persistence.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const (
	defaultDirPerm  os.FileMode = 0o755
	defaultFilePerm os.FileMode = 0o644
)

// OutputFSAdapter abstracts the filesystem operations the domain layer needs
// to materialize a reconstructed tree. It hides direct `os` access so the
// workflow logic can be tested without touching the disk.
type OutputFSAdapter interface {
	// Abs returns the absolute, cleaned form of path.
	Abs(ctx context.Context, path m.Path) (m.Path, error)

	// MkdirAll creates path and any missing parents. Existing directories are
	// not an error.
	MkdirAll(ctx context.Context, path m.Path) error

	// WriteFileAtomic replaces the file at path with content. Readers and
	// concurrent writers observe either the old or the new content, never a
	// partial file.
	WriteFileAtomic(ctx context.Context, path m.Path, content []byte) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// DirState reports whether path exists and whether it has any entries.
	DirState(ctx context.Context, path m.Path) (exists bool, empty bool, err error)

	// ClearDir removes everything under path and recreates it empty.
	ClearDir(ctx context.Context, path m.Path) error

	// Contains reports whether path, with every existing symlink along it
	// resolved, still lies strictly inside root.
	Contains(ctx context.Context, root m.Path, path m.Path) (bool, error)
}

// LocalOutputFSAdapter implements OutputFSAdapter on the local disk.
type LocalOutputFSAdapter struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewLocalOutputFSAdapter constructs a LocalOutputFSAdapter ready to be wired
// into the workflow.
func NewLocalOutputFSAdapter() *LocalOutputFSAdapter {
	return &LocalOutputFSAdapter{
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
}

// Abs returns the absolute path.
func (a *LocalOutputFSAdapter) Abs(_ context.Context, path m.Path) (m.Path, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}

// MkdirAll creates a directory tree.
func (a *LocalOutputFSAdapter) MkdirAll(ctx context.Context, path m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return os.MkdirAll(string(path), a.dirPerm)
}

// WriteFileAtomic writes content to a temporary file in the destination
// directory and renames it over path.
func (a *LocalOutputFSAdapter) WriteFileAtomic(ctx context.Context, path m.Path, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := string(path)

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sourcerer-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, a.filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// ReadFile loads file contents from disk.
func (a *LocalOutputFSAdapter) ReadFile(_ context.Context, path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// DirState reports existence and emptiness of a directory.
func (a *LocalOutputFSAdapter) DirState(_ context.Context, path m.Path) (bool, bool, error) {
	f, err := os.Open(string(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, true, nil
		}

		return false, false, err
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return true, false, err
	}

	if !info.IsDir() {
		return true, false, fmt.Errorf("%s is not a directory", path)
	}

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, true, nil
	}

	if err != nil {
		return true, false, err
	}

	return true, false, nil
}

// ClearDir removes a directory and all its contents, then recreates it.
func (a *LocalOutputFSAdapter) ClearDir(ctx context.Context, path m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.RemoveAll(string(path)); err != nil {
		return err
	}

	return os.MkdirAll(string(path), a.dirPerm)
}

// Contains resolves symlinks in root and in the existing part of path, then
// checks that path stays strictly inside root.
func (a *LocalOutputFSAdapter) Contains(_ context.Context, root m.Path, path m.Path) (bool, error) {
	realRoot, err := filepath.EvalSymlinks(string(root))
	if err != nil {
		return false, err
	}

	realPath, err := resolveExisting(string(path))
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return false, nil
	}

	if rel == "." || rel == ".." || filepath.IsAbs(rel) || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}

	return true, nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of path
// and appends the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	current := filepath.Clean(path)

	var missing []string

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(append([]string{current}, missing...)...), nil
		}

		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}
}
