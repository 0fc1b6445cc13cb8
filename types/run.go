package types

import (
	"time"
)

// TestRun is a single fwts invocation for one test name or sleep mode.
type TestRun struct {
	ID       string        // test identifier as selected by the user, e.g. "klog" or "sleep"
	Args     []string      // arguments handed to fwts after the fixed options
	Output   string        // trimmed stdout summary, the raw outcome
	ExitCode int           // fwts exit code, 0 when it exited cleanly
	Duration time.Duration // wall clock time of the invocation
}

// RunSummary maps test identifiers to their raw fwts outcome.
// Iteration order is the order in which tests were first recorded.
type RunSummary struct {
	order    []string
	outcomes map[string]string
}

// NewRunSummary creates an empty RunSummary.
func NewRunSummary() *RunSummary {
	return &RunSummary{outcomes: make(map[string]string)}
}

// Set records the raw outcome of a test. Re-recording a test replaces its
// outcome but keeps its original position.
func (s *RunSummary) Set(testID, outcome string) {
	if _, ok := s.outcomes[testID]; !ok {
		s.order = append(s.order, testID)
	}
	s.outcomes[testID] = outcome
}

// Get returns the raw outcome recorded for testID.
func (s *RunSummary) Get(testID string) (string, bool) {
	out, ok := s.outcomes[testID]
	return out, ok
}

// IDs returns the recorded test identifiers in first-seen order.
func (s *RunSummary) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Len returns the number of recorded tests.
func (s *RunSummary) Len() int {
	return len(s.order)
}
