// Package sleep drives repeated suspend/resume cycles through fwts and
// measures each one from kernel log timestamps.
package sleep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-fwts/metrics"
	"github.com/ethereum-optimism/infra/op-fwts/syslog"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// TestID is the run summary key of a sleep run.
const TestID = "sleep"

const defaultSettlePoll = 100 * time.Millisecond

// Invoker runs fwts once with the given arguments.
type Invoker interface {
	Execute(ctx context.Context, testID string, args ...string) (*types.TestRun, error)
}

// WindowReader returns the system log lines written after a marker.
type WindowReader interface {
	Window(startMarker string) ([]string, error)
}

// ProgressReporter receives each measured cycle.
type ProgressReporter interface {
	Report(it types.SleepIteration, total int) error
}

// Config holds the collaborators of a Runner.
type Config struct {
	Invoker  Invoker
	Markers  syslog.MarkerWriter
	Log      WindowReader
	Progress ProgressReporter // optional
	Logger   log.Logger

	// LogSettle bounds how long to keep re-reading the log when the end
	// marker has not been flushed by the syslog daemon yet. Zero reads once.
	LogSettle time.Duration

	Clock  func() time.Time // optional, defaults to time.Now
	Tracer trace.Tracer     // optional, defaults to the global tracer
}

// RunResult is the outcome of a sleep run.
type RunResult struct {
	Plan       *Plan
	Iterations []types.SleepIteration
	Summary    *Summary // nil for s4 plans
	Output     string   // fwts summary of the last cycle
}

// Outcome returns the raw outcome recorded for the run. A failed
// measurement overrides the fwts summary with a critical failure.
func (r *RunResult) Outcome() string {
	if r.Summary != nil && r.Summary.Status == types.StatusFail {
		return types.MarkerCritical
	}
	return r.Output
}

// Runner executes sleep plans. Cycles run strictly one after another: each
// cycle writes and reads back its own markers in the shared system log
// before the next one starts.
type Runner struct {
	invoker   Invoker
	markers   syslog.MarkerWriter
	window    WindowReader
	progress  ProgressReporter
	log       log.Logger
	settle    time.Duration
	settleGap time.Duration
	now       func() time.Time
	tracer    trace.Tracer
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Invoker == nil {
		return nil, errors.New("invoker cannot be nil")
	}
	if cfg.Markers == nil {
		return nil, errors.New("marker writer cannot be nil")
	}
	if cfg.Log == nil {
		return nil, errors.New("log reader cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("op-fwts/sleep")
	}
	return &Runner{
		invoker:   cfg.Invoker,
		markers:   cfg.Markers,
		window:    cfg.Log,
		progress:  cfg.Progress,
		log:       cfg.Logger,
		settle:    cfg.LogSettle,
		settleGap: defaultSettlePoll,
		now:       cfg.Clock,
		tracer:    cfg.Tracer,
	}, nil
}

// Run executes every cycle of plan. Failing to write a marker, to run fwts
// or to read the system log at all aborts the run. A cycle whose log window
// cannot be measured is recorded as FAIL and the run continues.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*RunResult, error) {
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}
	if plan.Iterations < 1 {
		return nil, fmt.Errorf("plan needs at least one iteration, got %d", plan.Iterations)
	}

	r.log.Info("Starting sleep run", "args", strings.Join(plan.Args, " "), "iterations", plan.Iterations,
		"sleepTimeout", plan.SleepTimeout, "resumeTimeout", plan.ResumeTimeout, "s4", plan.IsS4())

	result := &RunResult{Plan: plan}
	for i := 0; i < plan.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sleep run interrupted before cycle %d: %w", i, err)
		}
		it, output, err := r.runCycle(ctx, plan, i)
		if err != nil {
			return nil, err
		}
		result.Output = output
		if it == nil {
			continue
		}
		result.Iterations = append(result.Iterations, *it)
	}

	if plan.IsS4() {
		r.log.Info("Sleep run completed, s4 cycles are not measured", "iterations", plan.Iterations)
		return result, nil
	}

	summary, err := Aggregate(result.Iterations)
	if err != nil {
		return nil, err
	}
	result.Summary = &summary
	r.log.Info("Sleep run completed", "status", summary.Status, "failed", summary.Failed,
		"avgSleep", summary.AvgSleep, "avgResume", summary.AvgResume)
	return result, nil
}

func (r *Runner) runCycle(ctx context.Context, plan *Plan, cycle int) (*types.SleepIteration, string, error) {
	ctx, span := r.tracer.Start(ctx, "sleep-cycle", trace.WithAttributes(
		attribute.Int("cycle", cycle),
		attribute.Int("cycles", plan.Iterations),
		attribute.StringSlice("args", plan.Args),
	))
	defer span.End()

	markers := NewMarkers(r.now(), cycle)
	if err := r.markers.WriteMarker(markers.Start); err != nil {
		span.SetStatus(codes.Error, "start marker")
		return nil, "", fmt.Errorf("cycle %d: writing start marker: %w", cycle, err)
	}

	run, err := r.invoker.Execute(ctx, TestID, plan.Args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fwts")
		return nil, "", fmt.Errorf("cycle %d: %w", cycle, err)
	}

	if err := r.markers.WriteMarker(markers.End); err != nil {
		span.SetStatus(codes.Error, "end marker")
		return nil, "", fmt.Errorf("cycle %d: writing end marker: %w", cycle, err)
	}

	if plan.IsS4() {
		return nil, run.Output, nil
	}

	it, err := r.measure(ctx, plan, cycle, markers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "system log")
		return nil, "", fmt.Errorf("cycle %d: %w", cycle, err)
	}
	span.SetAttributes(
		attribute.String("status", string(it.Status)),
		attribute.Float64("sleep_elapsed", it.SleepElapsed),
		attribute.Float64("resume_elapsed", it.ResumeElapsed),
	)
	metrics.RecordSleepCycle(it)

	if r.progress != nil {
		if err := r.progress.Report(it, plan.Iterations); err != nil {
			r.log.Warn("Failed to report progress", "cycle", cycle, "err", err)
		}
	}
	return &it, run.Output, nil
}

// measure reads back the cycle's log window and turns it into an iteration.
// Only an unavailable system log is returned as an error.
func (r *Runner) measure(ctx context.Context, plan *Plan, cycle int, markers Markers) (types.SleepIteration, error) {
	it := types.SleepIteration{Index: cycle, Status: types.StatusFail}

	window, err := r.readWindow(ctx, markers)
	if err != nil {
		metrics.RecordErrorDetails("window", err)
		if errors.Is(err, syslog.ErrLogUnavailable) {
			return it, err
		}
		r.log.Warn("Could not read sleep log window", "cycle", cycle, "err", err)
		it.Error = err.Error()
		return it, nil
	}

	timing, err := ParseTiming(window, markers.End)
	it.Status = timing.Status
	it.SleepElapsed = timing.SleepElapsed
	it.ResumeElapsed = timing.ResumeElapsed
	if err != nil {
		if errors.Is(err, ErrNegativeDuration) {
			r.log.Warn("Suspicious sleep timings", "cycle", cycle, "sleep", it.SleepElapsed, "resume", it.ResumeElapsed)
		} else {
			r.log.Warn("Could not parse sleep log window", "cycle", cycle, "err", err)
		}
		metrics.RecordErrorDetails("timing", err)
		it.Error = err.Error()
		return it, nil
	}
	if it.Status != types.StatusPass {
		it.Error = fmt.Sprintf("end marker %q not found in log", markers.End)
		return it, nil
	}

	if limit := plan.SleepTimeout.Seconds(); it.SleepElapsed > limit {
		it.Status = types.StatusFail
		it.Error = fmt.Sprintf("sleep took %0.5fs, limit %0.0fs", it.SleepElapsed, limit)
	} else if limit := plan.ResumeTimeout.Seconds(); it.ResumeElapsed > limit {
		it.Status = types.StatusFail
		it.Error = fmt.Sprintf("resume took %0.5fs, limit %0.0fs", it.ResumeElapsed, limit)
	}
	return it, nil
}

// readWindow extracts the log window, re-reading until the end marker shows
// up or the settle time runs out.
func (r *Runner) readWindow(ctx context.Context, markers Markers) ([]string, error) {
	settleCtx, cancel := context.WithTimeout(ctx, r.settle)
	defer cancel()
	for {
		window, err := r.window.Window(markers.Start)
		if err != nil && !errors.Is(err, syslog.ErrMarkerNotFound) {
			return nil, err
		}
		if err == nil && containsLine(window, markers.End) {
			return window, nil
		}
		if r.settle <= 0 {
			return window, err
		}
		select {
		case <-settleCtx.Done():
			return window, err
		case <-time.After(r.settleGap):
		}
	}
}

func containsLine(lines []string, s string) bool {
	for _, l := range lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}
