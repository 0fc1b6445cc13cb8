package fwts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-fwts/classify"
	"github.com/ethereum-optimism/infra/op-fwts/exitcodes"
	"github.com/ethereum-optimism/infra/op-fwts/flags"
	"github.com/ethereum-optimism/infra/op-fwts/progress"
	"github.com/ethereum-optimism/infra/op-fwts/reporting"
	"github.com/ethereum-optimism/infra/op-fwts/runner"
	"github.com/ethereum-optimism/infra/op-fwts/service"
	"github.com/ethereum-optimism/infra/op-fwts/sleep"
	"github.com/ethereum-optimism/infra/op-fwts/syslog"
	"github.com/ethereum-optimism/infra/op-fwts/testlist"
	"github.com/ethereum-optimism/infra/op-fwts/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// Run phases published on the healthz server.
const (
	PhaseIdle     = "idle"
	PhaseVersion  = "version"
	PhaseTests    = "tests"
	PhaseSleep    = "sleep"
	PhaseReport   = "report"
	PhaseFinished = "finished"
)

// fwts implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &fwts{}

// fwts runs one selection of firmware tests and exits.
type fwts struct {
	config    *Config
	version   string
	executor  runner.Executor
	catalogue testlist.Catalogue
	formatter ResultFormatter
	reporter  MetricsReporter
	svc       *service.Service
	out       io.Writer

	// resolved once at startup
	progressBackend progress.Backend

	// replaced in tests
	markerWriter func() (syslog.MarkerWriter, func() error, error)
	newProgress  func(progress.Backend) (progress.Reporter, error)

	result  *RunResult
	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	Report *reporting.Report
	Runs   []*types.TestRun
	Dir    string // report directory, empty when reports are disabled
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*fwts, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	executor, err := runner.NewExecutor(runner.ExecutorConfig{
		Binary:     config.FwtsBinary,
		ResultsLog: config.ResultsLog,
		Timeout:    config.ProcessTimeout,
		Logger:     config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	catalogue := testlist.Default()
	if config.TestPlan != "" {
		plan, err := testlist.LoadPlan(config.TestPlan)
		if err != nil {
			return nil, err
		}
		catalogue = catalogue.Override(plan)
	}

	f := &fwts{
		config:           config,
		version:          version,
		executor:         executor,
		catalogue:        catalogue,
		formatter:        NewConsoleResultFormatter(config.Log, os.Stdout),
		reporter:         NewDefaultMetricsReporter(),
		out:              os.Stdout,
		progressBackend:  progress.ResolveBackend(config.Progress, os.Getenv("DISPLAY"), exec.LookPath),
		shutdownCallback: shutdownCallback,
	}
	f.markerWriter = f.defaultMarkerWriter
	f.newProgress = func(b progress.Backend) (progress.Reporter, error) {
		return progress.New(b, f.out)
	}

	if config.MetricsConfig.Enabled {
		f.svc = service.New(service.Config{
			MetricsHost: config.MetricsConfig.ListenAddr,
			MetricsPort: config.MetricsConfig.ListenPort,
		}, config.Log)
	}
	return f, nil
}

// Start implements the cliapp.Lifecycle interface. It runs the selected
// tests once and returns a TestFailureError when the fail level is reached.
func (f *fwts) Start(ctx context.Context) error {
	f.running.Store(true)
	if f.svc != nil {
		f.svc.Start()
	}

	if f.config.Mode.Informational() {
		if err := f.inform(ctx); err != nil {
			return NewRuntimeError(err)
		}
		go f.shutdownCallback(nil)
		return nil
	}

	result, err := f.run(ctx)
	if err != nil {
		f.config.Log.Error("Runtime error running fwts", "error", err)
		return NewRuntimeError(err)
	}
	f.result = result

	if result.Report.ExitCode == exitcodes.TestFailure {
		f.config.Log.Warn("fwts reported failures at or above the fail level", "fail_level", f.config.FailLevel)
		return NewTestFailureError(failureMessage(f.config.FailLevel, result.Report.Buckets))
	}
	go f.shutdownCallback(nil)
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (f *fwts) Stop(ctx context.Context) error {
	if !f.running.Load() {
		return nil
	}
	f.running.Store(false)
	if f.svc != nil {
		f.svc.Shutdown(ctx)
	}
	f.config.Log.Info("op-fwts stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (f *fwts) Stopped() bool {
	return !f.running.Load()
}

// Result returns the outcome of the last run, nil before a run completes.
func (f *fwts) Result() *RunResult {
	return f.result
}

// inform prints the output of an informational mode.
func (f *fwts) inform(ctx context.Context) error {
	var out string
	switch f.config.Mode {
	case ModeFwtsHelp:
		help, err := f.executor.Help(ctx)
		if err != nil {
			return err
		}
		out = help
	case ModeList:
		out = strings.Join(f.catalogue.All(), "\n")
	case ModeListHWE:
		out = strings.Join(f.catalogue.HWE, "\n")
	case ModeListQA:
		out = strings.Join(f.catalogue.QA, "\n")
	default:
		return fmt.Errorf("mode %s is not informational", f.config.Mode)
	}
	_, err := fmt.Fprintln(f.out, out)
	return err
}

// run executes the selected tests or sleep cycles, classifies the outcomes
// and resolves the verdict.
func (f *fwts) run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	logger := f.config.Log.New("run_id", runID)
	logger.Info("Starting fwts run", "mode", f.config.Mode, "fail_level", f.config.FailLevel)

	var (
		summary  *types.RunSummary
		runs     []*types.TestRun
		sleepRes *sleep.RunResult
		version  string
		err      error
	)
	if f.config.Mode == ModeSleep {
		f.setPhase(PhaseSleep)
		summary, runs, sleepRes, err = f.runSleep(ctx)
	} else {
		summary, runs, version, err = f.runTests(ctx)
	}
	if err != nil {
		return nil, err
	}

	f.setPhase(PhaseReport)
	buckets := classify.Classify(summary)
	report := &reporting.Report{
		RunID:       runID,
		StartedAt:   start,
		Duration:    time.Since(start),
		FailLevel:   f.config.FailLevel.String(),
		ExitCode:    classify.Resolve(f.config.FailLevel, buckets),
		ResultsLog:  f.config.ResultsLog,
		FwtsVersion: version,
		Tests:       reporting.NewTestEntries(summary, buckets, runs),
		Buckets:     buckets,
		Sleep:       reporting.NewSleepSection(sleepRes),
	}
	if len(buckets.Other) > 0 {
		logger.Warn("fwts outcomes without a known result marker", "tests", buckets.Other)
	}

	if f.config.HostInfo {
		host, err := reporting.CollectHost(ctx)
		if err != nil {
			logger.Warn("Could not collect host facts", "err", err)
		} else {
			report.Host = host
		}
	}

	if err := f.formatter.FormatResults(report); err != nil {
		logger.Error("Failed to print results", "err", err)
	}
	f.reporter.ReportResults(report)

	result := &RunResult{Report: report, Runs: runs}
	if f.config.ReportDir != "" {
		w, err := reporting.NewWriter(f.config.ReportDir)
		if err != nil {
			return nil, err
		}
		dir, err := w.Write(report, runs)
		if err != nil {
			return nil, fmt.Errorf("writing reports: %w", err)
		}
		result.Dir = dir
		logger.Info("Reports written", "dir", dir)
	}

	f.setPhase(PhaseFinished)
	logger.Info("fwts run completed", "exit_code", report.ExitCode, "duration", report.Duration)
	return result, nil
}

// runTests runs a named test selection once each.
func (f *fwts) runTests(ctx context.Context) (*types.RunSummary, []*types.TestRun, string, error) {
	tests := f.selectTests()
	for _, test := range tests {
		if f.catalogue.IsInteractive(test) {
			f.config.Log.Warn("Test needs user interaction and may wait for input", "test", test)
		}
	}

	var version string
	acpiTestFlag := false
	if slices.Contains(tests, runner.ACPITestsID) {
		f.setPhase(PhaseVersion)
		v, err := f.executor.Version(ctx)
		if err != nil {
			f.config.Log.Warn("Could not read the fwts version, running acpitests as a plain test", "err", err)
		} else {
			version = v
			acpiTestFlag = testlist.SupportsACPITestsFlag(v)
			f.config.Log.Debug("fwts version", "version", v, "acpitests_flag", acpiTestFlag)
		}
	}

	f.setPhase(PhaseTests)
	tr, err := runner.NewTestRunner(f.executor, acpiTestFlag, f.config.Log)
	if err != nil {
		return nil, nil, "", err
	}
	res, err := tr.Run(ctx, tests)
	if err != nil {
		return nil, nil, "", err
	}
	return res.Summary, res.Runs, version, nil
}

func (f *fwts) selectTests() []string {
	switch f.config.Mode {
	case ModeTests:
		return f.config.Tests
	case ModeHWE:
		return f.catalogue.HWE
	case ModeQA:
		return f.catalogue.QA
	default:
		return f.catalogue.All()
	}
}

// runSleep drives the measured sleep cycles. The progress display is closed
// whatever the outcome.
func (f *fwts) runSleep(ctx context.Context) (*types.RunSummary, []*types.TestRun, *sleep.RunResult, error) {
	plan, err := sleep.NewPlan(f.config.SleepArgs, f.config.SleepTimeout, f.config.ResumeTimeout)
	if err != nil {
		return nil, nil, nil, err
	}
	f.config.Log.Info("Sleep plan", "args", plan.Args, "cycles", plan.Iterations,
		"sleep_timeout", plan.SleepTimeout, "resume_timeout", plan.ResumeTimeout)

	markers, closeMarkers, err := f.markerWriter()
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() {
		if err := closeMarkers(); err != nil {
			f.config.Log.Warn("Failed to close marker writer", "err", err)
		}
	}()

	reporter, err := f.newProgress(f.progressBackend)
	if err != nil {
		f.config.Log.Warn("Progress display unavailable, reporting on the console", "backend", f.progressBackend, "err", err)
		reporter, err = progress.New(progress.BackendConsole, f.out)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			f.config.Log.Warn("Failed to close progress display", "err", err)
		}
	}()

	invoker := &recordingInvoker{invoker: f.executor}
	sr, err := sleep.NewRunner(sleep.Config{
		Invoker:   invoker,
		Markers:   markers,
		Log:       syslog.NewExtractor(f.config.SyslogPath, f.config.MaxScanLines),
		Progress:  reporter,
		Logger:    f.config.Log,
		LogSettle: f.config.LogSettle,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := sr.Run(ctx, plan)
	if err != nil {
		return nil, nil, nil, err
	}

	summary := types.NewRunSummary()
	summary.Set(sleep.TestID, res.Outcome())
	return summary, invoker.runs, res, nil
}

func (f *fwts) defaultMarkerWriter() (syslog.MarkerWriter, func() error, error) {
	if f.config.MarkerTarget == flags.MarkerTargetFile {
		return syslog.NewFileWriter(f.config.SyslogPath), func() error { return nil }, nil
	}
	w, err := syslog.NewSyslogWriter(syslog.DefaultTag)
	if err != nil {
		return nil, nil, err
	}
	return w, w.Close, nil
}

func (f *fwts) setPhase(phase string) {
	if f.svc != nil {
		f.svc.Healthz.SetPhase(phase)
	}
}

// recordingInvoker keeps every fwts invocation of a sleep run for the raw
// reports.
type recordingInvoker struct {
	invoker sleep.Invoker
	runs    []*types.TestRun
}

func (r *recordingInvoker) Execute(ctx context.Context, testID string, args ...string) (*types.TestRun, error) {
	run, err := r.invoker.Execute(ctx, testID, args...)
	if run != nil {
		r.runs = append(r.runs, run)
	}
	return run, err
}

func failureMessage(level types.Severity, buckets classify.Report) string {
	return fmt.Sprintf("fail level %s reached by: %s", level, strings.Join(classify.Tripped(level, buckets), ", "))
}
