package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

type mockExecutor struct {
	outputs map[string]string
	failOn  string
	calls   [][]string
}

func (m *mockExecutor) Execute(_ context.Context, testID string, args ...string) (*types.TestRun, error) {
	m.calls = append(m.calls, append([]string{testID}, args...))
	if testID == m.failOn {
		return nil, ErrExternalProcess
	}
	return &types.TestRun{ID: testID, Args: args, Output: m.outputs[testID]}, nil
}

func (m *mockExecutor) Version(context.Context) (string, error) { return "15.07.00", nil }

func (m *mockExecutor) Help(context.Context) (string, error) { return "usage", nil }

func TestTestRunnerRecordsOutcomesInOrder(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{
		"version": "PASSED",
		"klog":    "FAILED_CRITICAL",
		"mtrr":    "FAILED_LOW",
	}}
	r, err := NewTestRunner(exec, false, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), []string{"version", "klog", "mtrr"})
	require.NoError(t, err)

	assert.Equal(t, []string{"version", "klog", "mtrr"}, res.Summary.IDs())
	out, ok := res.Summary.Get("klog")
	require.True(t, ok)
	assert.Equal(t, "FAILED_CRITICAL", out)
	assert.Len(t, res.Runs, 3)
}

func TestTestRunnerACPITestsFlag(t *testing.T) {
	tests := []struct {
		name     string
		flag     bool
		wantArgs []string
	}{
		{name: "new fwts uses the flag", flag: true, wantArgs: []string{ACPITestsID, ACPITestsFlag}},
		{name: "old fwts uses the name", flag: false, wantArgs: []string{ACPITestsID, ACPITestsID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{outputs: map[string]string{ACPITestsID: "PASSED"}}
			r, err := NewTestRunner(exec, tt.flag, nil)
			require.NoError(t, err)

			res, err := r.Run(context.Background(), []string{ACPITestsID})
			require.NoError(t, err)
			assert.Equal(t, [][]string{tt.wantArgs}, exec.calls)

			// The outcome stays keyed by the catalogue name
			_, ok := res.Summary.Get(ACPITestsID)
			assert.True(t, ok)
		})
	}
}

func TestTestRunnerStopsOnProcessError(t *testing.T) {
	exec := &mockExecutor{failOn: "klog"}
	r, err := NewTestRunner(exec, false, nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), []string{"version", "klog", "mtrr"})
	require.True(t, errors.Is(err, ErrExternalProcess))
	assert.Len(t, exec.calls, 2)
}

func TestTestRunnerInvalidInput(t *testing.T) {
	_, err := NewTestRunner(nil, false, nil)
	assert.Error(t, err)

	r, err := NewTestRunner(&mockExecutor{}, false, nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.Error(t, err)
}
