package fwts

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, name, label, value string) *dto.Metric {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m
				}
			}
		}
	}
	return nil
}

func TestDefaultMetricsReporter_ReportResults(t *testing.T) {
	r := sampleReport()
	r.RunID = "reporter-run"
	NewDefaultMetricsReporter().ReportResults(r)

	verdict := findMetric(t, "fwts_run_verdict", "run_id", "reporter-run")
	require.NotNil(t, verdict)
	assert.Equal(t, 1.0, verdict.GetGauge().GetValue())

	outcome := findMetric(t, "fwts_test_outcomes_total", "run_id", "reporter-run")
	require.NotNil(t, outcome)
	assert.Equal(t, 1.0, outcome.GetCounter().GetValue())
}
