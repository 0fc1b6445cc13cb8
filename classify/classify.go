// Package classify sorts raw fwts outcomes into severity buckets and derives
// the run's exit code from a configured fail level.
package classify

import (
	"slices"
	"strings"

	"github.com/ethereum-optimism/infra/op-fwts/exitcodes"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Report lists the tests found in each bucket, in the order the tests were
// recorded. A test may appear in more than one bucket when its outcome
// carries several markers.
type Report struct {
	Critical []string `json:"critical"`
	High     []string `json:"high"`
	Medium   []string `json:"medium"`
	Low      []string `json:"low"`
	Passed   []string `json:"passed"`
	Aborted  []string `json:"aborted"`
	// Other holds tests whose outcome matched no marker at all.
	Other []string `json:"other"`
}

// Classify buckets every outcome of summary. Each marker is tested on its
// own, so ABORTED is detected whether or not the outcome also says PASSED.
func Classify(summary *types.RunSummary) Report {
	var r Report
	if summary == nil {
		return r
	}
	for _, id := range summary.IDs() {
		out, _ := summary.Get(id)
		matched := false
		for _, b := range []struct {
			marker string
			dst    *[]string
		}{
			{types.MarkerCritical, &r.Critical},
			{types.MarkerHigh, &r.High},
			{types.MarkerMedium, &r.Medium},
			{types.MarkerLow, &r.Low},
			{types.MarkerPassed, &r.Passed},
			{types.MarkerAborted, &r.Aborted},
		} {
			if strings.Contains(out, b.marker) {
				*b.dst = append(*b.dst, id)
				matched = true
			}
		}
		if !matched {
			r.Other = append(r.Other, id)
		}
	}
	return r
}

// Bucket returns the tests recorded for severity s. SeverityNone has no
// bucket.
func (r Report) Bucket(s types.Severity) []string {
	switch s {
	case types.SeverityCritical:
		return r.Critical
	case types.SeverityHigh:
		return r.High
	case types.SeverityMedium:
		return r.Medium
	case types.SeverityLow:
		return r.Low
	case types.SeverityAborted:
		return r.Aborted
	default:
		return nil
	}
}

// tripsOn lists the buckets that fail a run at each fail level. Aborted
// sits below none in the severity order but trips on the serious failures
// as well as on aborted tests.
var tripsOn = map[types.Severity][]types.Severity{
	types.SeverityCritical: {types.SeverityCritical},
	types.SeverityHigh:     {types.SeverityCritical, types.SeverityHigh},
	types.SeverityMedium:   {types.SeverityCritical, types.SeverityHigh, types.SeverityMedium},
	types.SeverityLow:      {types.SeverityCritical, types.SeverityHigh, types.SeverityMedium, types.SeverityLow},
	types.SeverityAborted:  {types.SeverityAborted, types.SeverityCritical, types.SeverityHigh},
}

// Resolve returns exitcodes.TestFailure if any bucket that level trips on is
// non-empty and exitcodes.Success otherwise. SeverityNone never fails.
func Resolve(level types.Severity, r Report) int {
	for _, s := range tripsOn[level] {
		if len(r.Bucket(s)) > 0 {
			return exitcodes.TestFailure
		}
	}
	return exitcodes.Success
}

// Tripped returns the tests that fail a run at level, in bucket order and
// without duplicates.
func Tripped(level types.Severity, r Report) []string {
	var tests []string
	for _, s := range tripsOn[level] {
		for _, t := range r.Bucket(s) {
			if !slices.Contains(tests, t) {
				tests = append(tests, t)
			}
		}
	}
	return tests
}

// Counts returns the number of tests per bucket label, for summaries.
func (r Report) Counts() map[string]int {
	return map[string]int{
		types.SeverityCritical.String(): len(r.Critical),
		types.SeverityHigh.String():     len(r.High),
		types.SeverityMedium.String():   len(r.Medium),
		types.SeverityLow.String():      len(r.Low),
		"passed":                        len(r.Passed),
		types.SeverityAborted.String():  len(r.Aborted),
		"other":                         len(r.Other),
	}
}
