package fwts

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-fwts/classify"
	"github.com/ethereum-optimism/infra/op-fwts/reporting"
	"github.com/ethereum-optimism/infra/op-fwts/sleep"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

func sampleReport() *reporting.Report {
	summary := types.NewRunSummary()
	summary.Set("klog", "FAILED_HIGH: 1")
	summary.Set("version", "PASSED: 1")
	buckets := classify.Classify(summary)
	return &reporting.Report{
		RunID:      "run-1",
		Duration:   1500 * time.Millisecond,
		FailLevel:  "high",
		ExitCode:   classify.Resolve(types.SeverityHigh, buckets),
		ResultsLog: "/tmp/fwts_results.log",
		Tests:      reporting.NewTestEntries(summary, buckets, nil),
		Buckets:    buckets,
	}
}

func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	var out bytes.Buffer
	formatter := NewConsoleResultFormatter(log.NewLogger(log.DiscardHandler()), &out)

	require.NoError(t, formatter.FormatResults(sampleReport()))

	s := out.String()
	assert.Contains(t, s, "1.5s")
	assert.Contains(t, s, "klog")
	assert.Contains(t, s, "VERDICT")
	assert.Contains(t, s, "High Failures: 1")
	assert.Contains(t, s, "Passed: 1")
}

func TestConsoleResultFormatter_FormatResults_SleepCycles(t *testing.T) {
	r := sampleReport()
	r.Sleep = &reporting.SleepSection{
		Iterations: []types.SleepIteration{
			{Index: 0, Status: types.StatusPass, SleepElapsed: 4, ResumeElapsed: 1},
			{Index: 1, Status: types.StatusFail, Error: "resume took 4.00000s, limit 3s"},
		},
		Summary: &sleep.Summary{AvgSleep: 4, AvgResume: 1},
	}

	var out bytes.Buffer
	formatter := NewConsoleResultFormatter(log.NewLogger(log.DiscardHandler()), &out)
	require.NoError(t, formatter.FormatResults(r))

	s := out.String()
	assert.Contains(t, s, "cycle 0")
	assert.Contains(t, s, "4.000s / 1.000s")
	assert.Contains(t, s, "resume took")
	assert.Contains(t, s, "Average time to sleep: 4.00000")
}

func TestConsoleResultFormatter_FormatResults_EmptyResult(t *testing.T) {
	var out bytes.Buffer
	formatter := NewConsoleResultFormatter(log.NewLogger(log.DiscardHandler()), &out)
	assert.NoError(t, formatter.FormatResults(&reporting.Report{RunID: "empty"}))
}

func TestCycleResult(t *testing.T) {
	assert.Equal(t, "✓ pass", cycleResult(types.SleepIteration{Status: types.StatusPass}))
	assert.Equal(t, "✗ fail", cycleResult(types.SleepIteration{Status: types.StatusFail}))
	assert.Equal(t, "✗ no marker", cycleResult(types.SleepIteration{Status: types.StatusFail, Error: "no marker"}))
}
