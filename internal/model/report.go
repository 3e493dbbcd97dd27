package model

import "time"

// EntryStatus is the terminal state of one sourcemap entry.
type EntryStatus string

const (
	// EntryWritten means the source was written to disk.
	EntryWritten EntryStatus = "written"
	// EntrySkipped means the source was intentionally not written.
	EntrySkipped EntryStatus = "skipped"
	// EntryFailed means writing the source hit an I/O error.
	EntryFailed EntryStatus = "failed"
)

// SkipReason explains an EntrySkipped outcome.
type SkipReason string

const (
	// SkipVendor marks entries inside a vendored dependency tree.
	SkipVendor SkipReason = "vendor"
	// SkipUnsafePath marks entries whose path sanitized to nothing usable or
	// resolved outside the output root.
	SkipUnsafePath SkipReason = "unsafe-path"
)

// EntryOutcome records what happened to one SourceEntry.
type EntryOutcome struct {
	DeclaredPath string      `yaml:"declared_path"`
	Path         OutputPath  `yaml:"path,omitempty"`
	Status       EntryStatus `yaml:"status"`
	Reason       SkipReason  `yaml:"reason,omitempty"`
	Error        string      `yaml:"error,omitempty"`
}

// MaterializationReport aggregates the outcomes of one Materialize call.
type MaterializationReport struct {
	Outcomes []EntryOutcome `yaml:"outcomes,omitempty"`
	Written  int            `yaml:"written"`
	Skipped  int            `yaml:"skipped"`
	Failed   int            `yaml:"failed"`
}

// Add records an outcome and updates the counters.
func (r *MaterializationReport) Add(outcome EntryOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)

	switch outcome.Status {
	case EntryWritten:
		r.Written++
	case EntrySkipped:
		r.Skipped++
	case EntryFailed:
		r.Failed++
	}
}

// JobStage is a state in the per-job pipeline.
type JobStage string

// Pipeline stages in the order a job moves through them.
const (
	StagePending            JobStage = "pending"
	StageFetched            JobStage = "fetched"
	StageReferenceExtracted JobStage = "reference-extracted"
	StageAcquired           JobStage = "acquired"
	StageDecoded            JobStage = "decoded"
	StageMaterialized       JobStage = "materialized"
	StageFailed             JobStage = "failed"
)

// FailureKind names the stage a failed job stopped at.
type FailureKind string

const (
	// FailureNone is used for jobs that did not fail.
	FailureNone FailureKind = ""
	// FailureFetch means the script itself could not be fetched.
	FailureFetch FailureKind = "fetch"
	// FailureReferenceMissing means the script declares no sourcemap.
	FailureReferenceMissing FailureKind = "reference-missing"
	// FailureAcquire means the sourcemap could not be downloaded or decoded from base64.
	FailureAcquire FailureKind = "acquire"
	// FailureDecode means the sourcemap document was malformed.
	FailureDecode FailureKind = "decode"
	// FailureCancelled means the run was interrupted before the job finished.
	FailureCancelled FailureKind = "cancelled"
)

// JobReport is the result of reconstructing a single job.
type JobReport struct {
	Job             Job                   `yaml:"job"`
	Stage           JobStage              `yaml:"stage"`
	Failure         FailureKind           `yaml:"failure,omitempty"`
	Error           string                `yaml:"error,omitempty"`
	Reference       ReferenceKind         `yaml:"reference,omitempty"`
	Materialization MaterializationReport `yaml:"materialization"`
}

// Succeeded reports whether the job reached StageMaterialized.
func (r JobReport) Succeeded() bool {
	return r.Stage == StageMaterialized
}

// Summary holds the run totals shown at the end of a run.
type Summary struct {
	Jobs             int `yaml:"jobs"`
	Materialized     int `yaml:"materialized"`
	FetchFailed      int `yaml:"fetch_failed"`
	ReferenceMissing int `yaml:"reference_missing"`
	AcquireFailed    int `yaml:"acquire_failed"`
	DecodeFailed     int `yaml:"decode_failed"`
	Cancelled        int `yaml:"cancelled"`
	FilesWritten     int `yaml:"files_written"`
	FilesSkipped     int `yaml:"files_skipped"`
	FilesFailed      int `yaml:"files_failed"`
}

// Summarize computes totals over a list of job reports.
func Summarize(jobs []JobReport) Summary {
	s := Summary{Jobs: len(jobs)}

	for _, job := range jobs {
		switch job.Failure {
		case FailureNone:
			if job.Succeeded() {
				s.Materialized++
			}
		case FailureFetch:
			s.FetchFailed++
		case FailureReferenceMissing:
			s.ReferenceMissing++
		case FailureAcquire:
			s.AcquireFailed++
		case FailureDecode:
			s.DecodeFailed++
		case FailureCancelled:
			s.Cancelled++
		}

		s.FilesWritten += job.Materialization.Written
		s.FilesSkipped += job.Materialization.Skipped
		s.FilesFailed += job.Materialization.Failed
	}

	return s
}

// RunReport describes a whole reconstruction run.
type RunReport struct {
	RunID      string      `yaml:"run_id"`
	Output     Path        `yaml:"output"`
	StartedAt  time.Time   `yaml:"started_at"`
	FinishedAt time.Time   `yaml:"finished_at"`
	Jobs       []JobReport `yaml:"jobs"`
	Summary    Summary     `yaml:"summary"`
}
