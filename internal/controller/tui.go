package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const maxProgressWidth = 60

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)

// TUI implements UI with a live Bubble Tea progress view for reconstruct runs
// on a terminal. Prompts, listings and the final summary go through the
// wrapped SimpleUI.
type TUI struct {
	cmd    *cobra.Command
	simple *SimpleUI

	mu      sync.Mutex
	config  StartConfig
	total   int
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(cmd *cobra.Command, simple *SimpleUI) *TUI {
	return &TUI{cmd: cmd, simple: simple, config: newStartConfig(nil)}
}

// Start initializes the UI.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	t.mu.Lock()
	t.config = newStartConfig(options)
	t.mu.Unlock()

	return t.simple.Start(ctx, options...)
}

// Close stops the progress view if it is still running.
func (t *TUI) Close(ctx context.Context) {
	t.stopProgram()
	t.simple.Close(ctx)
}

// Confirm asks a yes/no question.
func (t *TUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	t.stopProgram()

	return t.simple.Confirm(ctx, prompt)
}

// Warn prints a warning above the progress view.
func (t *TUI) Warn(ctx context.Context, message string) {
	if p := t.runningProgram(); p != nil {
		p.Send(printMsg(warnStyle.Render("[!] " + message)))
		return
	}

	t.simple.Warn(ctx, message)
}

// DisplayJobs records the job count for the progress bar.
func (t *TUI) DisplayJobs(ctx context.Context, jobs []m.Job, ignored []string, duplicates int) {
	t.mu.Lock()
	t.total = len(jobs)
	t.mu.Unlock()

	t.simple.DisplayJobs(ctx, jobs, ignored, duplicates)
}

// DisplayJobStarted marks a job as running.
func (t *TUI) DisplayJobStarted(ctx context.Context, index int, job m.Job) {
	if !t.interactive() {
		t.simple.DisplayJobStarted(ctx, index, job)
		return
	}

	if p := t.ensureProgram(); p != nil {
		p.Send(jobStartedMsg{index: index, url: job.SourceURL})
	}
}

// DisplayEntryOutcome prints per-file lines above the progress view in
// verbose mode. Failures and unsafe paths are printed at every verbosity.
func (t *TUI) DisplayEntryOutcome(ctx context.Context, job m.Job, outcome m.EntryOutcome) {
	if !t.interactive() {
		t.simple.DisplayEntryOutcome(ctx, job, outcome)
		return
	}

	p := t.runningProgram()
	if p == nil {
		return
	}

	switch {
	case outcome.Status == m.EntryFailed:
		p.Send(printMsg(errorStyle.Render(fmt.Sprintf("  Failed to write %s: %s", outcome.Path, outcome.Error))))
	case outcome.Status == m.EntrySkipped && outcome.Reason == m.SkipUnsafePath:
		p.Send(printMsg(warnStyle.Render(fmt.Sprintf("  Skipping unsafe path %q", outcome.DeclaredPath))))
	case t.verbosity() != VerbosityVerbose:
	case outcome.Status == m.EntryWritten:
		p.Send(printMsg(successStyle.Render("  Saving file " + string(outcome.Path))))
	case outcome.Status == m.EntrySkipped:
		p.Send(printMsg(warnStyle.Render(fmt.Sprintf("  Skipping %s (%s)", outcome.DeclaredPath, outcome.Reason))))
	}
}

// DisplayJobCompleted advances the progress bar and prints failures.
func (t *TUI) DisplayJobCompleted(ctx context.Context, index int, report m.JobReport) {
	if !t.interactive() {
		t.simple.DisplayJobCompleted(ctx, index, report)
		return
	}

	p := t.ensureProgram()
	if p == nil {
		return
	}

	switch report.Failure {
	case m.FailureNone:
	case m.FailureReferenceMissing, m.FailureCancelled:
		p.Send(printMsg(warnStyle.Render(formatJobLine(report))))
	default:
		p.Send(printMsg(errorStyle.Render(formatJobLine(report))))
	}

	p.Send(jobDoneMsg{index: index, failed: !report.Succeeded()})
}

// DisplaySummary stops the progress view and prints the totals.
func (t *TUI) DisplaySummary(ctx context.Context, report m.RunReport) {
	t.stopProgram()
	t.simple.DisplaySummary(ctx, report)
}

func (t *TUI) interactive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.config.mode == ModeReconstruct && !t.config.plain && t.config.verbosity != VerbosityQuiet
}

func (t *TUI) verbosity() Verbosity {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.config.verbosity
}

func (t *TUI) runningProgram() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program
}

func (t *TUI) ensureProgram() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return t.program
	}

	program := tea.NewProgram(newProgressModel(t.total),
		tea.WithOutput(t.cmd.OutOrStdout()),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Error("Progress view stopped", "error", err)
		}
	}()

	t.program = program
	t.done = done

	return program
}

func (t *TUI) stopProgram() {
	t.mu.Lock()
	program, done := t.program, t.done
	t.program, t.done = nil, nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Send(stopMsg{})
	<-done
}

type jobStartedMsg struct {
	index int
	url   string
}

type jobDoneMsg struct {
	index  int
	failed bool
}

type stopMsg struct{}

// printMsg is a line printed above the live view.
type printMsg string

// progressModel renders a spinner, a progress bar and the running jobs.
type progressModel struct {
	spinner  spinner.Model
	bar      progress.Model
	total    int
	done     int
	failed   int
	running  map[int]string
	quitting bool
}

func newProgressModel(total int) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxProgressWidth

	return progressModel{
		spinner: s,
		bar:     bar,
		total:   total,
		running: make(map[int]string),
	}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.bar.Width = min(max(msg.Width-20, 10), maxProgressWidth)
		return pm, nil

	case jobStartedMsg:
		pm.running[msg.index] = msg.url
		return pm, nil

	case jobDoneMsg:
		delete(pm.running, msg.index)

		pm.done++
		if msg.failed {
			pm.failed++
		}

		return pm, nil

	case printMsg:
		return pm, tea.Println(string(msg))

	case stopMsg:
		pm.quitting = true
		return pm, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	}

	return pm, nil
}

func (pm progressModel) percent() float64 {
	if pm.total <= 0 {
		return 0
	}

	return float64(pm.done) / float64(pm.total)
}

func (pm progressModel) View() string {
	if pm.quitting {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s %d/%d",
		pm.spinner.View(),
		titleStyle.Render("Reconstructing"),
		pm.bar.ViewAs(pm.percent()),
		pm.done, pm.total,
	)

	if pm.failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %d failed", pm.failed)))
	}

	b.WriteString("\n")

	indexes := make([]int, 0, len(pm.running))
	for i := range pm.running {
		indexes = append(indexes, i)
	}

	sort.Ints(indexes)

	for _, i := range indexes {
		b.WriteString(mutedStyle.Render("  → " + pm.running[i]))
		b.WriteString("\n")
	}

	return b.String()
}
