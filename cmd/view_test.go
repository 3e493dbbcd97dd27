package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

func TestViewCmd_PassesReportPath(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newViewCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("ViewReport", mock.Anything, m.Path("./reports/run.yaml")).Return(nil).Once()

	err := executeCmd(t, cmd, "view", "./reports/run.yaml")
	require.NoError(t, err)
}

func TestViewCmd_RequiresExactlyOneReport(t *testing.T) {
	for _, args := range [][]string{{"view"}, {"view", "a.yaml", "b.yaml"}} {
		mockWorkflow := useMockWorkflow(t)

		cmd := newRootCmd()
		cmd.AddCommand(newViewCmd())
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		err := executeCmd(t, cmd, args...)
		require.Error(t, err)
		mockWorkflow.AssertNotCalled(t, "ViewReport", mock.Anything, mock.Anything)
	}
}

func TestViewCmd_PropagatesLoadErrors(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newViewCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	loadErr := errors.New("open run.yaml: no such file or directory")
	mockWorkflow.On("ViewReport", mock.Anything, m.Path("run.yaml")).Return(loadErr).Once()

	err := executeCmd(t, cmd, "view", "run.yaml")
	require.ErrorIs(t, err, loadErr)
}
