// Package mocks provides testify mocks for the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sourcerer.dev/pkg/sourcerer/internal/controller"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUI is a mock of controller.UI.
type MockUI struct {
	mock.Mock
}

// NewMockUI creates a MockUI that asserts its expectations on cleanup.
func NewMockUI(t testingT) *MockUI {
	mk := &MockUI{}
	mk.Test(t)
	t.Cleanup(func() { mk.AssertExpectations(t) })

	return mk
}

// Start provides a mock function.
func (mk *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	args := mk.Called(ctx, options)

	return args.Error(0)
}

// Close provides a mock function.
func (mk *MockUI) Close(ctx context.Context) {
	mk.Called(ctx)
}

// Confirm provides a mock function.
func (mk *MockUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := mk.Called(ctx, prompt)

	return args.Bool(0), args.Error(1)
}

// Warn provides a mock function.
func (mk *MockUI) Warn(ctx context.Context, message string) {
	mk.Called(ctx, message)
}

// DisplayJobs provides a mock function.
func (mk *MockUI) DisplayJobs(ctx context.Context, jobs []m.Job, ignored []string, duplicates int) {
	mk.Called(ctx, jobs, ignored, duplicates)
}

// DisplayJobStarted provides a mock function.
func (mk *MockUI) DisplayJobStarted(ctx context.Context, index int, job m.Job) {
	mk.Called(ctx, index, job)
}

// DisplayEntryOutcome provides a mock function.
func (mk *MockUI) DisplayEntryOutcome(ctx context.Context, job m.Job, outcome m.EntryOutcome) {
	mk.Called(ctx, job, outcome)
}

// DisplayJobCompleted provides a mock function.
func (mk *MockUI) DisplayJobCompleted(ctx context.Context, index int, report m.JobReport) {
	mk.Called(ctx, index, report)
}

// DisplaySummary provides a mock function.
func (mk *MockUI) DisplaySummary(ctx context.Context, report m.RunReport) {
	mk.Called(ctx, report)
}

var _ controller.UI = (*MockUI)(nil)
