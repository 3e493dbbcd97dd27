// Package controller provides the console output for reconstruction runs.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// Verbosity controls how much console output a UI produces.
type Verbosity int

// Available Verbosity values.
const (
	VerbosityNormal Verbosity = iota
	VerbosityQuiet
	VerbosityVerbose
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReconstruct StartMode = iota
	ModeList
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode      StartMode
	verbosity Verbosity
	plain     bool
}

// WithReconstructMode sets the UI to show live job progress.
func WithReconstructMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReconstruct
	}
}

// WithListMode sets the UI to list resolved jobs only.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode sets the UI to render a saved report.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// WithVerbosity sets the console verbosity.
func WithVerbosity(v Verbosity) StartOption {
	return func(c *StartConfig) {
		c.verbosity = v
	}
}

// WithPlainOutput disables the interactive progress view.
func WithPlainOutput(plain bool) StartOption {
	return func(c *StartConfig) {
		c.plain = plain
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeReconstruct, verbosity: VerbosityNormal}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI defines how reconstruction progress is presented to the user.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Confirm(ctx context.Context, prompt string) (bool, error)
	Warn(ctx context.Context, message string)
	DisplayJobs(ctx context.Context, jobs []m.Job, ignored []string, duplicates int)
	DisplayJobStarted(ctx context.Context, index int, job m.Job)
	DisplayEntryOutcome(ctx context.Context, job m.Job, outcome m.EntryOutcome)
	DisplayJobCompleted(ctx context.Context, index int, report m.JobReport)
	DisplaySummary(ctx context.Context, report m.RunReport)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// NewUI picks the interactive UI for terminals and the plain UI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	simple := NewSimpleUI(cmd)
	if !tty {
		return simple
	}

	return NewTUI(cmd, simple)
}
