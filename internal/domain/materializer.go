package domain

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/twmb/murmur3"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const pathLockStripes = 64

// Materializer writes decoded sources under an output root.
type Materializer interface {
	Materialize(ctx context.Context, entries []m.SourceEntry, root m.Path, policy m.Policy) m.MaterializationReport
}

type materializer struct {
	fsAdapter adapter.OutputFSAdapter
	locks     *pathLocks
}

// NewMaterializer constructs a Materializer backed by the provided
// filesystem adapter. One Materializer should be shared by all workers of a
// run so writes to the same path are serialized.
func NewMaterializer(fsAdapter adapter.OutputFSAdapter) Materializer {
	return &materializer{
		fsAdapter: fsAdapter,
		locks:     &pathLocks{},
	}
}

func (mt *materializer) Materialize(ctx context.Context, entries []m.SourceEntry, root m.Path, policy m.Policy) m.MaterializationReport {
	report := m.MaterializationReport{}

	for _, entry := range entries {
		if ctx.Err() != nil {
			slog.Info("Materialization interrupted", "root", root, "remaining", len(entries)-len(report.Outcomes))
			break
		}

		report.Add(mt.materializeEntry(ctx, entry, root, policy))
	}

	return report
}

func (mt *materializer) materializeEntry(ctx context.Context, entry m.SourceEntry, root m.Path, policy m.Policy) m.EntryOutcome {
	outcome := m.EntryOutcome{DeclaredPath: entry.DeclaredPath}

	if policy.SkipsVendored(entry.DeclaredPath) {
		outcome.Status = m.EntrySkipped
		outcome.Reason = m.SkipVendor

		return outcome
	}

	rel := Sanitize(entry.DeclaredPath)

	target, ok := ResolveOutputPath(string(root), rel)
	if !ok {
		return mt.skipUnsafe(outcome, rel)
	}

	outcome.Path = rel

	// Symlinks already present under root must not carry the write outside it.
	inside, err := mt.fsAdapter.Contains(ctx, root, m.Path(target))
	if err != nil {
		slog.Error("Failed to resolve output path", "path", target, "error", err)

		outcome.Status = m.EntryFailed
		outcome.Error = err.Error()

		return outcome
	}

	if !inside {
		return mt.skipUnsafe(outcome, rel)
	}

	if err := mt.write(ctx, target, entry.Content); err != nil {
		slog.Error("Failed to write source", "path", target, "error", err)

		outcome.Status = m.EntryFailed
		outcome.Error = err.Error()

		return outcome
	}

	outcome.Status = m.EntryWritten

	return outcome
}

func (mt *materializer) skipUnsafe(outcome m.EntryOutcome, rel m.OutputPath) m.EntryOutcome {
	slog.Warn("Skipping unsafe source path", "declared", outcome.DeclaredPath, "sanitized", rel)

	outcome.Path = ""
	outcome.Status = m.EntrySkipped
	outcome.Reason = m.SkipUnsafePath

	return outcome
}

func (mt *materializer) write(ctx context.Context, target string, content string) error {
	unlock := mt.locks.lock(target)
	defer unlock()

	if err := mt.fsAdapter.MkdirAll(ctx, m.Path(filepath.Dir(target))); err != nil {
		return err
	}

	return mt.fsAdapter.WriteFileAtomic(ctx, m.Path(target), []byte(content))
}

// pathLocks is a fixed table of mutexes picked by hashing the target path.
// Distinct paths may share a stripe; identical paths always do.
type pathLocks struct {
	stripes [pathLockStripes]sync.Mutex
}

func (l *pathLocks) lock(path string) func() {
	mu := &l.stripes[murmur3.StringSum32(path)%pathLockStripes]
	mu.Lock()

	return mu.Unlock
}
