package domain

import (
	"context"
	"errors"
	"log/slog"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// Orchestrator drives a single job from fetching the script to writing its
// recovered sources. Failures are recorded in the returned report and never
// abort the run.
type Orchestrator interface {
	Reconstruct(ctx context.Context, job m.Job, root m.Path, policy m.Policy) m.JobReport
}

type orchestrator struct {
	fetcher      adapter.Fetcher
	acquirer     Acquirer
	materializer Materializer
}

// NewOrchestrator constructs an Orchestrator from its pipeline stages.
func NewOrchestrator(fetcher adapter.Fetcher, acquirer Acquirer, materializer Materializer) Orchestrator {
	return &orchestrator{
		fetcher:      fetcher,
		acquirer:     acquirer,
		materializer: materializer,
	}
}

func (o *orchestrator) Reconstruct(ctx context.Context, job m.Job, root m.Path, policy m.Policy) m.JobReport {
	report := m.JobReport{Job: job, Stage: m.StagePending}

	if err := ctx.Err(); err != nil {
		return o.fail(report, m.FailureCancelled, err)
	}

	resp, err := o.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		return o.fail(report, o.failureKind(ctx, m.FailureFetch), &FetchFailedError{URL: job.SourceURL, Err: err})
	}

	if !resp.OK() {
		return o.fail(report, m.FailureFetch, &FetchFailedError{URL: job.SourceURL, Status: resp.StatusCode})
	}

	report.Stage = m.StageFetched

	ref := ExtractReference(string(resp.Body))
	if _, missing := ref.(m.MissingReference); missing {
		ref = ReferenceFromHeaders(resp.Header)
	}

	report.Reference = ref.Kind()

	if _, missing := ref.(m.MissingReference); missing {
		slog.Info("No sourcemap reference", "url", job.SourceURL)
		return o.fail(report, m.FailureReferenceMissing, ErrReferenceMissing)
	}

	report.Stage = m.StageReferenceExtracted

	origin := resp.URL
	if origin == "" {
		origin = job.SourceURL
	}

	raw, err := o.acquirer.Acquire(ctx, ref, origin)
	if err != nil {
		return o.fail(report, o.failureKind(ctx, m.FailureAcquire), err)
	}

	report.Stage = m.StageAcquired

	entries, err := DecodeSourcemap(raw)
	if err != nil {
		return o.fail(report, m.FailureDecode, err)
	}

	report.Stage = m.StageDecoded

	if err := ctx.Err(); err != nil {
		return o.fail(report, m.FailureCancelled, err)
	}

	report.Materialization = o.materializer.Materialize(ctx, entries, root, policy)

	if err := ctx.Err(); err != nil {
		return o.fail(report, m.FailureCancelled, err)
	}

	report.Stage = m.StageMaterialized

	slog.Info("Job materialized",
		"url", job.SourceURL,
		"written", report.Materialization.Written,
		"skipped", report.Materialization.Skipped,
		"failed", report.Materialization.Failed,
	)

	return report
}

// failureKind reports cancellation instead of the stage failure when the run
// context was the cause.
func (o *orchestrator) failureKind(ctx context.Context, kind m.FailureKind) m.FailureKind {
	if ctx.Err() != nil {
		return m.FailureCancelled
	}

	return kind
}

func (o *orchestrator) fail(report m.JobReport, kind m.FailureKind, err error) m.JobReport {
	report.Stage = m.StageFailed
	report.Failure = kind
	report.Error = err.Error()

	if kind != m.FailureReferenceMissing && !errors.Is(err, context.Canceled) {
		slog.Error("Job failed", "url", report.Job.SourceURL, "failure", kind, "error", err)
	}

	return report
}
