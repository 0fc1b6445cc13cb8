package fwts

import (
	"github.com/ethereum-optimism/infra/op-fwts/metrics"
	"github.com/ethereum-optimism/infra/op-fwts/reporting"
)

// MetricsReporter is responsible for reporting metrics from a run.
type MetricsReporter interface {
	ReportResults(report *reporting.Report)
}

// DefaultMetricsReporter records runs in the Prometheus metrics.
type DefaultMetricsReporter struct{}

func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults records one outcome per test and bucket, test durations and
// the verdict. Sleep cycles are recorded by the sleep runner as they finish.
func (r *DefaultMetricsReporter) ReportResults(report *reporting.Report) {
	for _, entry := range report.Tests {
		for _, bucket := range entry.Buckets {
			metrics.RecordTestOutcome(report.RunID, entry.ID, bucket)
		}
		if entry.Duration > 0 {
			metrics.RecordTestDuration(report.RunID, entry.ID, entry.Duration)
		}
	}
	metrics.RecordVerdict(report.RunID, report.FailLevel, report.ExitCode, report.Duration)
}
