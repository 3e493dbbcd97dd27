package controller

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const banner = `
  ___  ___  _   _ _ __ ___ ___ _ __ ___ _ __
 / __|/ _ \| | | | '__/ __/ _ \ '__/ _ \ '__|
 \__ \ (_) | |_| | | | (_|  __/ | |  __/ |
 |___/\___/ \__,_|_|  \___\___|_|  \___|_|
`

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	bannerColor  = color.New(color.FgYellow, color.Bold)
)

// SimpleUI implements UI by printing lines to the cobra command's output.
// It is safe for concurrent use by workflow workers.
type SimpleUI struct {
	cmd    *cobra.Command
	mu     sync.Mutex
	config StartConfig
	lines  chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, config: newStartConfig(nil)}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = newStartConfig(options)

	if s.config.mode == ModeReconstruct && s.config.verbosity != VerbosityQuiet {
		_, _ = bannerColor.Fprint(s.out(), banner)
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Confirm asks a yes/no question on the command's input.
func (s *SimpleUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = warnColor.Fprintf(s.out(), "%s (y/n): ", prompt)

	answer, err := s.readAnswer(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readAnswer waits for the next input line or for ctx to be done. Input is
// read by a single goroutine so an abandoned read is picked up by the next
// prompt.
func (s *SimpleUI) readAnswer(ctx context.Context) (string, error) {
	if s.lines == nil {
		s.lines = make(chan inputLine, 1)
		go readLines(s.cmd.InOrStdin(), s.lines)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", nil
		}

		if line.err != nil && !errors.Is(line.err, io.EOF) {
			return "", fmt.Errorf("read answer: %w", line.err)
		}

		return line.text, nil
	}
}

func readLines(r io.Reader, lines chan<- inputLine) {
	defer close(lines)

	reader := bufio.NewReader(r)

	for {
		text, err := reader.ReadString('\n')
		lines <- inputLine{text: text, err: err}

		if err != nil {
			return
		}
	}
}

// Warn prints a warning to the error stream.
func (s *SimpleUI) Warn(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = warnColor.Fprintf(s.errOut(), "[!] %s\n", message)
}

// DisplayJobs reports the resolved job list. In list mode it prints every job.
func (s *SimpleUI) DisplayJobs(ctx context.Context, jobs []m.Job, ignored []string, duplicates int) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.mode == ModeList {
		_, _ = fmt.Fprintf(s.out(), "\n%s", renderJobTable(jobs))
	}

	if s.config.verbosity == VerbosityQuiet {
		return
	}

	if s.config.verbosity == VerbosityVerbose {
		for _, link := range ignored {
			_, _ = warnColor.Fprintf(s.out(), "Ignoring non js link: %s\n", link)
		}
	}

	if len(ignored) > 0 || duplicates > 0 {
		s.printf("Loaded %s unique and ignored %s duplicate/invalid links\n",
			infoColor.Sprint(len(jobs)), infoColor.Sprint(len(ignored)+duplicates))

		return
	}

	s.printf("Found %s JS files\n", infoColor.Sprint(len(jobs)))
}

// DisplayJobStarted announces a job.
func (s *SimpleUI) DisplayJobStarted(ctx context.Context, _ int, job m.Job) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.verbosity == VerbosityQuiet {
		return
	}

	s.printf("Saving original source for %s\n", infoColor.Sprint(job.SourceURL))
}

// DisplayEntryOutcome shows per-file progress in verbose mode. Failed writes
// and unsafe paths are always shown.
func (s *SimpleUI) DisplayEntryOutcome(ctx context.Context, _ m.Job, outcome m.EntryOutcome) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch outcome.Status {
	case m.EntryFailed:
		_, _ = errorColor.Fprintf(s.errOut(), "  Failed to write %s: %s\n", outcome.Path, outcome.Error)
	case m.EntryWritten:
		if s.config.verbosity == VerbosityVerbose {
			_, _ = successColor.Fprintf(s.out(), "  Saving file %s\n", outcome.Path)
		}
	case m.EntrySkipped:
		if outcome.Reason == m.SkipUnsafePath {
			_, _ = warnColor.Fprintf(s.errOut(), "  Skipping unsafe path %q\n", outcome.DeclaredPath)
		} else if s.config.verbosity == VerbosityVerbose {
			_, _ = warnColor.Fprintf(s.out(), "  Skipping %s (%s)\n", outcome.DeclaredPath, outcome.Reason)
		}
	}
}

// DisplayJobCompleted reports how a job ended.
func (s *SimpleUI) DisplayJobCompleted(ctx context.Context, _ int, report m.JobReport) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.mode == ModeView {
		s.printf("%s %s\n", formatJobStatus(report), report.Job.SourceURL)
		return
	}

	line := formatJobLine(report)

	switch report.Failure {
	case m.FailureNone:
		if s.config.verbosity != VerbosityQuiet {
			_, _ = successColor.Fprintln(s.out(), line)
		}
	case m.FailureReferenceMissing, m.FailureCancelled:
		if s.config.verbosity != VerbosityQuiet {
			_, _ = warnColor.Fprintln(s.out(), line)
		}
	default:
		_, _ = errorColor.Fprintln(s.errOut(), line)
	}
}

// DisplaySummary prints the run totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report m.RunReport) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.verbosity == VerbosityQuiet {
		return
	}

	if s.config.mode == ModeView {
		s.printf("Run %s -> %s (%s)\n", report.RunID, report.Output, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	s.printf("\n%s", renderSummaryTable(report.Summary))
}

func (s *SimpleUI) out() io.Writer {
	return s.cmd.OutOrStdout()
}

func (s *SimpleUI) errOut() io.Writer {
	return s.cmd.ErrOrStderr()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out(), format, args...)
}

func formatJobLine(report m.JobReport) string {
	url := report.Job.SourceURL

	switch report.Failure {
	case m.FailureNone:
		mat := report.Materialization
		return fmt.Sprintf("  ^-- Wrote %d file(s), skipped %d for %s", mat.Written, mat.Skipped, url)
	case m.FailureReferenceMissing:
		return fmt.Sprintf("  ^-- SourceMappingURL not found in %s", url)
	case m.FailureCancelled:
		return fmt.Sprintf("  ^-- Cancelled %s", url)
	case m.FailureFetch:
		return fmt.Sprintf("  ^-- Failed to fetch %s: %s", url, report.Error)
	case m.FailureAcquire:
		return fmt.Sprintf("  ^-- Failed to download sourcemap for %s: %s", url, report.Error)
	case m.FailureDecode:
		return fmt.Sprintf("  ^-- Failed to decode sourcemap for %s: %s", url, report.Error)
	default:
		return fmt.Sprintf("  ^-- %s: %s", report.Failure, url)
	}
}

func formatJobStatus(report m.JobReport) string {
	if report.Succeeded() {
		return successColor.Sprintf("[%s]", report.Stage)
	}

	return errorColor.Sprintf("[%s]", report.Failure)
}

func renderJobTable(jobs []m.Job) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"#", "Script"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

	for i, job := range jobs {
		table.Append([]string{fmt.Sprintf("%d", i+1), job.SourceURL})
	}

	table.SetFooter([]string{"Total", fmt.Sprintf("%d", len(jobs))})
	table.Render()

	return tableBuffer.String()
}

func renderSummaryTable(summary m.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Result", "Count"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	rows := []struct {
		label string
		value int
	}{
		{"Scripts", summary.Jobs},
		{"Reconstructed", summary.Materialized},
		{"Fetch failed", summary.FetchFailed},
		{"No sourcemap", summary.ReferenceMissing},
		{"Sourcemap unavailable", summary.AcquireFailed},
		{"Malformed sourcemap", summary.DecodeFailed},
		{"Cancelled", summary.Cancelled},
		{"Files written", summary.FilesWritten},
		{"Files skipped", summary.FilesSkipped},
		{"Files failed", summary.FilesFailed},
	}

	for _, row := range rows {
		table.Append([]string{row.label, fmt.Sprintf("%d", row.value)})
	}

	table.Render()

	return tableBuffer.String()
}
