package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	"sourcerer.dev/pkg/sourcerer/internal/controller"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// RunArgs contains the arguments for a reconstruction run.
type RunArgs struct {
	RunID      string
	LinksFile  m.Path
	PageURL    string
	Output     m.Path
	Policy     m.Policy
	Parallel   int
	Timeout    time.Duration
	RateLimit  float64
	Insecure   bool
	ReportPath m.Path
	Verbosity  controller.Verbosity
	Plain      bool
}

// Workflow defines the user-facing operations of the tool.
type Workflow interface {
	Reconstruct(ctx context.Context, args RunArgs) (m.RunReport, error)
	ListJobs(ctx context.Context, args RunArgs) ([]m.Job, error)
	ViewReport(ctx context.Context, path m.Path) error
}

// Pipeline bundles the collaborators that depend on per-run settings such
// as the HTTP method and headers.
type Pipeline struct {
	Discoverer   adapter.LinkDiscoverer
	Orchestrator Orchestrator
}

// PipelineFactory builds the Pipeline for one run.
type PipelineFactory func(args RunArgs) Pipeline

// NewPipelineFactory returns a factory wiring an HTTP fetcher, the sourcemap
// acquirer and a materializer shared across runs.
func NewPipelineFactory(fsAdapter adapter.OutputFSAdapter) PipelineFactory {
	materializer := NewMaterializer(fsAdapter)

	return func(args RunArgs) Pipeline {
		fetcher := adapter.NewHTTPFetcher(args.Policy,
			adapter.WithTimeout(args.Timeout),
			adapter.WithRateLimit(args.RateLimit),
			adapter.WithInsecureTLS(args.Insecure),
		)

		return Pipeline{
			Discoverer:   adapter.NewPageLinkDiscoverer(fetcher),
			Orchestrator: NewOrchestrator(fetcher, NewAcquirer(fetcher, DefaultSourcemapCacheSize), materializer),
		}
	}
}

type workflow struct {
	adapter.OutputFSAdapter
	adapter.ReportStore
	ui          controller.UI
	newPipeline PipelineFactory
	loadLinks   func(filename string) (adapter.LinkList, error)
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.OutputFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	newPipeline PipelineFactory,
) Workflow {
	return &workflow{
		OutputFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		ui:              ui,
		newPipeline:     newPipeline,
		loadLinks:       adapter.LoadLinks,
	}
}

func (w *workflow) Reconstruct(ctx context.Context, args RunArgs) (m.RunReport, error) {
	if err := w.ui.Start(ctx,
		controller.WithReconstructMode(),
		controller.WithVerbosity(args.Verbosity),
		controller.WithPlainOutput(args.Plain),
	); err != nil {
		return m.RunReport{}, fmt.Errorf("start ui: %w", err)
	}
	defer w.ui.Close(ctx)

	pipeline := w.newPipeline(args)

	jobs, err := w.resolveJobs(ctx, args, pipeline.Discoverer)
	if err != nil {
		return m.RunReport{}, err
	}

	root, err := w.prepareOutput(ctx, args)
	if err != nil {
		return m.RunReport{}, err
	}

	report := m.RunReport{
		RunID:     args.RunID,
		Output:    root,
		StartedAt: time.Now(),
	}

	report.Jobs = w.runJobs(ctx, jobs, root, args, pipeline.Orchestrator)
	report.FinishedAt = time.Now()
	report.Summary = m.Summarize(report.Jobs)

	// The summary and report still go out after an interrupt.
	finishCtx := context.WithoutCancel(ctx)

	w.ui.DisplaySummary(finishCtx, report)
	w.saveReport(finishCtx, args.ReportPath, report)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("%w: %w", ErrUserAbort, err)
	}

	return report, nil
}

func (w *workflow) ListJobs(ctx context.Context, args RunArgs) ([]m.Job, error) {
	if err := w.ui.Start(ctx,
		controller.WithListMode(),
		controller.WithVerbosity(args.Verbosity),
		controller.WithPlainOutput(true),
	); err != nil {
		return nil, fmt.Errorf("start ui: %w", err)
	}
	defer w.ui.Close(ctx)

	return w.resolveJobs(ctx, args, w.newPipeline(args).Discoverer)
}

func (w *workflow) ViewReport(ctx context.Context, path m.Path) error {
	if err := w.ui.Start(ctx, controller.WithViewMode(), controller.WithPlainOutput(true)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.ui.Close(ctx)

	report, err := w.LoadReport(ctx, path)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	for i, job := range report.Jobs {
		w.ui.DisplayJobCompleted(ctx, i, job)
	}

	w.ui.DisplaySummary(ctx, report)

	return nil
}

func (w *workflow) resolveJobs(ctx context.Context, args RunArgs, discoverer adapter.LinkDiscoverer) ([]m.Job, error) {
	var list adapter.LinkList

	switch {
	case args.LinksFile != "":
		loaded, err := w.loadLinks(string(args.LinksFile))
		if err != nil {
			slog.Error("Failed to load links file", "path", args.LinksFile, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrInput, err)
		}

		list = loaded
	case args.PageURL != "":
		links, err := discoverer.DiscoverLinks(ctx, args.PageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrUserAbort, ctx.Err())
			}

			slog.Error("Failed to discover scripts", "url", args.PageURL, "error", err)

			return nil, fmt.Errorf("%w: %w", ErrInput, err)
		}

		list.Links = links
	default:
		return nil, fmt.Errorf("%w: a links file or a page url is required", ErrInput)
	}

	jobs := m.NewJobs(list.Links)

	w.ui.DisplayJobs(ctx, jobs, list.Ignored, list.Duplicates)

	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}

	return jobs, nil
}

func (w *workflow) prepareOutput(ctx context.Context, args RunArgs) (m.Path, error) {
	if args.Output == "" {
		return "", fmt.Errorf("%w: output directory is required", ErrInput)
	}

	root, err := w.Abs(ctx, args.Output)
	if err != nil {
		return "", fmt.Errorf("%w: output directory: %w", ErrInput, err)
	}

	exists, empty, err := w.DirState(ctx, root)
	if err != nil {
		return "", fmt.Errorf("%w: output directory: %w", ErrInput, err)
	}

	if !exists {
		if err := w.MkdirAll(ctx, root); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}

		return root, nil
	}

	if empty || args.Policy.OverwriteExisting {
		return root, nil
	}

	ok, err := w.ui.Confirm(ctx, fmt.Sprintf("Output directory %s is not empty. Delete its contents and continue?", root))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUserAbort, err)
	}

	if !ok {
		return "", ErrUserAbort
	}

	slog.Info("Clearing output directory", "path", root)

	if err := w.ClearDir(ctx, root); err != nil {
		return "", fmt.Errorf("clear output directory: %w", err)
	}

	return root, nil
}

func (w *workflow) runJobs(ctx context.Context, jobs []m.Job, root m.Path, args RunArgs, orchestrator Orchestrator) []m.JobReport {
	reports := make([]m.JobReport, len(jobs))

	var group errgroup.Group
	group.SetLimit(max(args.Parallel, 1))

	for i, job := range jobs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				reports[i] = m.JobReport{
					Job:     job,
					Stage:   m.StageFailed,
					Failure: m.FailureCancelled,
					Error:   err.Error(),
				}

				return nil
			}

			w.ui.DisplayJobStarted(ctx, i, job)

			report := orchestrator.Reconstruct(ctx, job, root, args.Policy)
			reports[i] = report

			for _, outcome := range report.Materialization.Outcomes {
				w.ui.DisplayEntryOutcome(ctx, job, outcome)
			}

			w.ui.DisplayJobCompleted(ctx, i, report)

			return nil
		})
	}

	_ = group.Wait()

	return reports
}

func (w *workflow) saveReport(ctx context.Context, path m.Path, report m.RunReport) {
	if path == "" {
		return
	}

	if err := w.SaveReport(ctx, path, report); err != nil {
		slog.Error("Failed to save run report", "path", path, "error", err)
		w.ui.Warn(ctx, fmt.Sprintf("could not save report to %s: %v", path, err))

		return
	}

	slog.Info("Run report saved", "path", path)
}

// IsInputError reports whether err was caused by invalid user input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInput)
}
