// Package model defines the data structures shared by the reconstruction pipeline.
package model

// Path represents a file system path.
type Path string

// OutputPath is a sanitized, relative, slash-separated path that is safe to
// join under an output root. It never contains a ".." segment and never
// starts with "/".
type OutputPath string

// SourceEntry is one original source recovered from a sourcemap.
type SourceEntry struct {
	// DeclaredPath is the path exactly as the sourcemap author wrote it. It is
	// untrusted and must be sanitized before touching the filesystem.
	DeclaredPath string
	Content      string
}

// Job is a single JavaScript URL to reconstruct sources from.
type Job struct {
	SourceURL string
}

// NewJobs converts a list of URLs into jobs, preserving order.
func NewJobs(urls []string) []Job {
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{SourceURL: u})
	}

	return jobs
}
