package sleep

import (
	"errors"
	"sort"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// ErrEmptyIterationSet is returned when there is nothing to aggregate.
var ErrEmptyIterationSet = errors.New("no sleep iterations to aggregate")

// Summary aggregates the measured cycles of a sleep run.
type Summary struct {
	Iterations int          `json:"iterations"`
	Failed     int          `json:"failed"`
	AvgSleep   float64      `json:"avg_sleep"`
	AvgResume  float64      `json:"avg_resume"`
	MinSleep   float64      `json:"min_sleep"`
	MaxSleep   float64      `json:"max_sleep"`
	MinResume  float64      `json:"min_resume"`
	MaxResume  float64      `json:"max_resume"`
	Status     types.Status `json:"status"`
}

// Aggregate averages sleep and resume times over all iterations. The run is
// FAIL if any iteration failed.
func Aggregate(iterations []types.SleepIteration) (Summary, error) {
	if len(iterations) == 0 {
		return Summary{}, ErrEmptyIterationSet
	}

	sleeps := make([]float64, 0, len(iterations))
	resumes := make([]float64, 0, len(iterations))
	summary := Summary{
		Iterations: len(iterations),
		Status:     types.StatusPass,
	}
	for _, it := range iterations {
		sleeps = append(sleeps, it.SleepElapsed)
		resumes = append(resumes, it.ResumeElapsed)
		if it.Failed() {
			summary.Failed++
			summary.Status = types.StatusFail
		}
	}

	summary.AvgSleep, summary.MinSleep, summary.MaxSleep = stats(sleeps)
	summary.AvgResume, summary.MinResume, summary.MaxResume = stats(resumes)
	return summary, nil
}

// stats sorts values in place and returns their mean, min and max. Summing
// in sorted order keeps the mean independent of iteration order.
func stats(values []float64) (mean, lo, hi float64) {
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values)), values[0], values[len(values)-1]
}
