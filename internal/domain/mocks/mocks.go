// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sourcerer.dev/pkg/sourcerer/internal/domain"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockWorkflow is a mock of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow that asserts its expectations on cleanup.
func NewMockWorkflow(t testingT) *MockWorkflow {
	mk := &MockWorkflow{}
	mk.Test(t)
	t.Cleanup(func() { mk.AssertExpectations(t) })

	return mk
}

// Reconstruct provides a mock function.
func (mk *MockWorkflow) Reconstruct(ctx context.Context, args domain.RunArgs) (m.RunReport, error) {
	ret := mk.Called(ctx, args)

	report, _ := ret.Get(0).(m.RunReport)

	return report, ret.Error(1)
}

// ListJobs provides a mock function.
func (mk *MockWorkflow) ListJobs(ctx context.Context, args domain.RunArgs) ([]m.Job, error) {
	ret := mk.Called(ctx, args)

	jobs, _ := ret.Get(0).([]m.Job)

	return jobs, ret.Error(1)
}

// ViewReport provides a mock function.
func (mk *MockWorkflow) ViewReport(ctx context.Context, path m.Path) error {
	ret := mk.Called(ctx, path)

	return ret.Error(0)
}

var _ domain.Workflow = (*MockWorkflow)(nil)
