// Package reporting renders the outcome of an op-fwts run to the console and
// to a per-run directory on disk.
package reporting

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-fwts/classify"
	"github.com/ethereum-optimism/infra/op-fwts/sleep"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Report is everything recorded about one run.
type Report struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
	FailLevel   string          `json:"fail_level"`
	ExitCode    int             `json:"exit_code"`
	ResultsLog  string          `json:"results_log"`
	FwtsVersion string          `json:"fwts_version,omitempty"`
	Host        *Host           `json:"host,omitempty"`
	Tests       []TestEntry     `json:"tests"`
	Buckets     classify.Report `json:"buckets"`
	Sleep       *SleepSection   `json:"sleep,omitempty"`
}

// TestEntry is the outcome of one test.
type TestEntry struct {
	ID       string        `json:"id"`
	Outcome  string        `json:"outcome"`
	Buckets  []string      `json:"buckets"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// SleepSection describes a sleep run.
type SleepSection struct {
	Args          []string               `json:"args"`
	Cycles        int                    `json:"cycles"`
	SleepTimeout  time.Duration          `json:"sleep_timeout"`
	ResumeTimeout time.Duration          `json:"resume_timeout"`
	Iterations    []types.SleepIteration `json:"iterations"`
	Summary       *sleep.Summary         `json:"summary,omitempty"`
}

// NewSleepSection converts a sleep run result for reporting.
func NewSleepSection(res *sleep.RunResult) *SleepSection {
	if res == nil || res.Plan == nil {
		return nil
	}
	return &SleepSection{
		Args:          res.Plan.Args,
		Cycles:        res.Plan.Iterations,
		SleepTimeout:  res.Plan.SleepTimeout,
		ResumeTimeout: res.Plan.ResumeTimeout,
		Iterations:    res.Iterations,
		Summary:       res.Summary,
	}
}

// NewTestEntries lists every test of summary with the buckets it landed in.
// runs supply exit codes and durations where available.
func NewTestEntries(summary *types.RunSummary, buckets classify.Report, runs []*types.TestRun) []TestEntry {
	byID := make(map[string]*types.TestRun, len(runs))
	for _, run := range runs {
		byID[run.ID] = run
	}

	named := []struct {
		name  string
		tests []string
	}{
		{"critical", buckets.Critical},
		{"high", buckets.High},
		{"medium", buckets.Medium},
		{"low", buckets.Low},
		{"passed", buckets.Passed},
		{"aborted", buckets.Aborted},
		{"other", buckets.Other},
	}

	var entries []TestEntry
	for _, id := range summary.IDs() {
		out, _ := summary.Get(id)
		entry := TestEntry{ID: id, Outcome: out}
		for _, b := range named {
			if slices.Contains(b.tests, id) {
				entry.Buckets = append(entry.Buckets, b.name)
			}
		}
		if run, ok := byID[id]; ok {
			entry.ExitCode = run.ExitCode
			entry.Duration = run.Duration
		}
		entries = append(entries, entry)
	}
	return entries
}

// WriteConsoleSummary prints the per-bucket listing shown at the end of a
// run. Failure buckets carry a pointer to the fwts results log.
func WriteConsoleSummary(w io.Writer, r *Report) error {
	var b strings.Builder

	if r.Sleep != nil && r.Sleep.Summary != nil {
		fmt.Fprintf(&b, "Average time to sleep: %0.5f\n", r.Sleep.Summary.AvgSleep)
		fmt.Fprintf(&b, "Average time to resume: %0.5f\n", r.Sleep.Summary.AvgResume)
	}

	failures := []struct {
		title string
		level string
		tests []string
	}{
		{"Critical Failures", "critical", r.Buckets.Critical},
		{"High Failures", "high", r.Buckets.High},
		{"Medium Failures", "medium", r.Buckets.Medium},
		{"Low Failures", "low", r.Buckets.Low},
	}
	for _, f := range failures {
		if len(f.tests) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %d\n", f.title, len(f.tests))
		fmt.Fprintf(&b, "WARNING: The following test cases were reported as %s\n"+
			"level failures by fwts. Please review the log at\n"+
			"%s for more information.\n", f.level, r.ResultsLog)
		writeList(&b, f.tests)
	}
	if len(r.Buckets.Passed) > 0 {
		fmt.Fprintf(&b, "Passed: %d\n", len(r.Buckets.Passed))
		writeList(&b, r.Buckets.Passed)
	}
	if len(r.Buckets.Aborted) > 0 {
		fmt.Fprintf(&b, "Aborted Tests: %d\n", len(r.Buckets.Aborted))
		fmt.Fprintf(&b, "WARNING: The following test cases were aborted by fwts\n"+
			"Please review the log at %s for more information.\n", r.ResultsLog)
		writeList(&b, r.Buckets.Aborted)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, tests []string) {
	for _, t := range tests {
		b.WriteString(" - " + t + "\n")
	}
}
