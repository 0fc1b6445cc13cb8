package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-fwts/classify"
	"github.com/ethereum-optimism/infra/op-fwts/sleep"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

func sampleReport(t *testing.T) (*Report, []*types.TestRun) {
	t.Helper()
	summary := types.NewRunSummary()
	summary.Set("klog", "\x1b[31mFAILED_CRITICAL\x1b[0m: 1")
	summary.Set("version", "PASSED")
	summary.Set("mtrr", "ABORTED")
	buckets := classify.Classify(summary)

	runs := []*types.TestRun{
		{ID: "klog", Output: "\x1b[31mFAILED_CRITICAL\x1b[0m: 1", ExitCode: 1, Duration: 2 * time.Second},
		{ID: "version", Output: "PASSED", Duration: 300 * time.Millisecond},
		{ID: "mtrr", Output: "ABORTED"},
	}
	return &Report{
		RunID:      "run-1",
		StartedAt:  time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Duration:   3 * time.Second,
		FailLevel:  "high",
		ExitCode:   1,
		ResultsLog: "/tmp/fwts_results.log",
		Tests:      NewTestEntries(summary, buckets, runs),
		Buckets:    buckets,
	}, runs
}

func TestNewTestEntries(t *testing.T) {
	r, _ := sampleReport(t)
	require.Len(t, r.Tests, 3)
	assert.Equal(t, "klog", r.Tests[0].ID)
	assert.Equal(t, []string{"critical"}, r.Tests[0].Buckets)
	assert.Equal(t, 1, r.Tests[0].ExitCode)
	assert.Equal(t, 2*time.Second, r.Tests[0].Duration)
	assert.Equal(t, []string{"passed"}, r.Tests[1].Buckets)
	assert.Equal(t, []string{"aborted"}, r.Tests[2].Buckets)
}

func TestWriteConsoleSummary(t *testing.T) {
	r, _ := sampleReport(t)
	r.Sleep = &SleepSection{Summary: &sleep.Summary{AvgSleep: 5, AvgResume: 2}}

	var buf bytes.Buffer
	require.NoError(t, WriteConsoleSummary(&buf, r))

	want := "Average time to sleep: 5.00000\n" +
		"Average time to resume: 2.00000\n" +
		"Critical Failures: 1\n" +
		"WARNING: The following test cases were reported as critical\n" +
		"level failures by fwts. Please review the log at\n" +
		"/tmp/fwts_results.log for more information.\n" +
		" - klog\n" +
		"Passed: 1\n" +
		" - version\n" +
		"Aborted Tests: 1\n" +
		"WARNING: The following test cases were aborted by fwts\n" +
		"Please review the log at /tmp/fwts_results.log for more information.\n" +
		" - mtrr\n"
	assert.Equal(t, want, buf.String())
}

func TestWriterWrite(t *testing.T) {
	r, runs := sampleReport(t)
	r.Host = &Host{Hostname: "dut", KernelVersion: "6.8.0", MemoryTotalMB: 16000}
	r.Sleep = &SleepSection{
		Args:   []string{"s3"},
		Cycles: 1,
		Iterations: []types.SleepIteration{
			{Index: 0, Status: types.StatusPass, SleepElapsed: 4, ResumeElapsed: 1},
		},
		Summary: &sleep.Summary{Iterations: 1, AvgSleep: 4, AvgResume: 1, Status: types.StatusPass},
	}

	base := t.TempDir()
	w, err := NewWriter(base)
	require.NoError(t, err)

	dir, err := w.Write(r, runs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "testrun-run-1"), dir)

	data, err := os.ReadFile(filepath.Join(dir, SummaryJSONFile))
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, []string{"klog"}, decoded.Buckets.Critical)
	require.NotNil(t, decoded.Sleep)
	assert.Equal(t, 4.0, decoded.Sleep.Summary.AvgSleep)

	html, err := os.ReadFile(filepath.Join(dir, SummaryHTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "fwts run run-1")
	assert.Contains(t, string(html), "dut")
	assert.Contains(t, string(html), "4.00000")

	text, err := os.ReadFile(filepath.Join(dir, SummaryTextFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "Run run-1, fail level high, exit code 1\n"))
	assert.Contains(t, string(text), "Critical Failures: 1")

	raw, err := os.ReadFile(filepath.Join(dir, RawDir, "klog.log"))
	require.NoError(t, err)
	assert.Equal(t, "FAILED_CRITICAL: 1\n", string(raw))
}

func TestWriterAppendsRepeatedRuns(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	r := &Report{RunID: "run-2"}
	runs := []*types.TestRun{{ID: "sleep", Output: "PASSED"}, {ID: "sleep", Output: "FAILED_LOW"}}
	dir, err := w.Write(r, runs)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, RawDir, "sleep.log"))
	require.NoError(t, err)
	assert.Equal(t, "PASSED\nFAILED_LOW\n", string(raw))
}

func TestWriterInvalidInput(t *testing.T) {
	_, err := NewWriter("")
	assert.Error(t, err)

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	_, err = w.Write(&Report{}, nil)
	assert.Error(t, err)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "acpitests", safeFilename("--acpitests"))
	assert.Equal(t, "a_b_c", safeFilename("a/b c"))
}

func TestCollectHost(t *testing.T) {
	h, err := CollectHost(context.Background())
	if err != nil {
		t.Skipf("host facts unavailable: %v", err)
	}
	assert.NotEmpty(t, h.Hostname)
	assert.NotZero(t, h.MemoryTotalMB)
}
