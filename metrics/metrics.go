package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-fwts/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "fwts"
)

var (
	Debug                bool = true
	validStatuses             = []types.Status{types.StatusPass, types.StatusFail}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_outcomes_total",
		Help:      "Count of fwts test outcomes per severity bucket",
	}, []string{
		"run_id",
		"test",
		"bucket",
	})

	testDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of a single fwts invocation",
	}, []string{
		"run_id",
		"test",
	})

	sleepCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "sleep_cycles_total",
		Help:      "Count of suspend/resume cycles by status",
	}, []string{
		"status",
	})

	sleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "sleep_seconds",
		Help:      "Time taken to enter sleep, from kernel log timestamps",
		Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30},
	})

	resumeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "resume_seconds",
		Help:      "Time taken to resume from sleep, from kernel log timestamps",
		Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 10},
	})

	runVerdict = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_verdict",
		Help:      "Exit code derived for a run (0 pass, 1 qualifying failure)",
	}, []string{
		"run_id",
		"fail_level",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a whole run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTestOutcome(runID string, test string, bucket string) {
	if Debug {
		log.Debug("metric inc",
			"m", "test_outcomes_total",
			"run_id", runID,
			"test", test,
			"bucket", bucket)
	}
	testOutcomesTotal.WithLabelValues(runID, test, bucket).Inc()
}

func RecordTestDuration(runID string, test string, duration time.Duration) {
	testDuration.WithLabelValues(runID, test).Set(duration.Seconds())
}

// RecordSleepCycle records one measured suspend/resume cycle.
func RecordSleepCycle(it types.SleepIteration) {
	if !slices.Contains(validStatuses, it.Status) {
		log.Error("RecordSleepCycle - invalid status", "status", it.Status)
		return
	}
	sleepCyclesTotal.WithLabelValues(string(it.Status)).Inc()
	if it.SleepElapsed >= 0 {
		sleepSeconds.Observe(it.SleepElapsed)
	}
	if it.ResumeElapsed >= 0 {
		resumeSeconds.Observe(it.ResumeElapsed)
	}
}

func RecordVerdict(runID string, failLevel string, exitCode int, duration time.Duration) {
	runVerdict.WithLabelValues(runID, failLevel).Set(float64(exitCode))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
