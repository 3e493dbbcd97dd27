// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockFetcher is a mock of adapter.Fetcher.
type MockFetcher struct {
	mock.Mock
}

// NewMockFetcher creates a MockFetcher that asserts its expectations on cleanup.
func NewMockFetcher(t testingT) *MockFetcher {
	mk := &MockFetcher{}
	mk.Test(t)
	t.Cleanup(func() { mk.AssertExpectations(t) })

	return mk
}

// Fetch provides a mock function.
func (mk *MockFetcher) Fetch(ctx context.Context, url string) (*adapter.Response, error) {
	args := mk.Called(ctx, url)

	resp, _ := args.Get(0).(*adapter.Response)

	return resp, args.Error(1)
}

// MockLinkDiscoverer is a mock of adapter.LinkDiscoverer.
type MockLinkDiscoverer struct {
	mock.Mock
}

// NewMockLinkDiscoverer creates a MockLinkDiscoverer that asserts its
// expectations on cleanup.
func NewMockLinkDiscoverer(t testingT) *MockLinkDiscoverer {
	mk := &MockLinkDiscoverer{}
	mk.Test(t)
	t.Cleanup(func() { mk.AssertExpectations(t) })

	return mk
}

// DiscoverLinks provides a mock function.
func (mk *MockLinkDiscoverer) DiscoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	args := mk.Called(ctx, pageURL)

	links, _ := args.Get(0).([]string)

	return links, args.Error(1)
}

// MockReportStore is a mock of adapter.ReportStore.
type MockReportStore struct {
	mock.Mock
}

// NewMockReportStore creates a MockReportStore that asserts its expectations
// on cleanup.
func NewMockReportStore(t testingT) *MockReportStore {
	mk := &MockReportStore{}
	mk.Test(t)
	t.Cleanup(func() { mk.AssertExpectations(t) })

	return mk
}

// SaveReport provides a mock function.
func (mk *MockReportStore) SaveReport(ctx context.Context, path m.Path, report m.RunReport) error {
	args := mk.Called(ctx, path, report)

	return args.Error(0)
}

// LoadReport provides a mock function.
func (mk *MockReportStore) LoadReport(ctx context.Context, path m.Path) (m.RunReport, error) {
	args := mk.Called(ctx, path)

	report, _ := args.Get(0).(m.RunReport)

	return report, args.Error(1)
}

var (
	_ adapter.Fetcher        = (*MockFetcher)(nil)
	_ adapter.LinkDiscoverer = (*MockLinkDiscoverer)(nil)
	_ adapter.ReportStore    = (*MockReportStore)(nil)
)
