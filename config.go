// Package fwts drives the firmware test suite: it selects tests, runs them or
// a series of measured sleep cycles, and turns the results into a verdict.
package fwts

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-fwts/flags"
	"github.com/ethereum-optimism/infra/op-fwts/progress"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Mode is what a run does.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeTests Mode = "tests"
	ModeSleep Mode = "sleep"
	ModeHWE   Mode = "hwe"
	ModeQA    Mode = "qa"

	// Informational modes print and exit without running tests.
	ModeFwtsHelp Mode = "fwts-help"
	ModeList     Mode = "list"
	ModeListHWE  Mode = "list-hwe"
	ModeListQA   Mode = "list-qa"
)

// Informational reports whether m only prints information.
func (m Mode) Informational() bool {
	switch m {
	case ModeFwtsHelp, ModeList, ModeListHWE, ModeListQA:
		return true
	}
	return false
}

// Config holds the application configuration
type Config struct {
	Mode      Mode
	Tests     []string // explicit tests, ModeTests only
	SleepArgs []string // fwts arguments given after --sleep, ModeSleep only

	SleepTimeout  time.Duration // zero means the default or an in-args --sleep-time
	ResumeTimeout time.Duration // zero means the default or an in-args --resume-time

	ResultsLog     string
	FailLevel      types.Severity
	FwtsBinary     string
	ProcessTimeout time.Duration

	SyslogPath   string
	MarkerTarget string
	MaxScanLines int
	LogSettle    time.Duration
	Progress     progress.Backend

	ReportDir string // empty disables on-disk reports
	TestPlan  string
	HostInfo  bool

	MetricsConfig opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	failLevel, err := types.ParseSeverity(ctx.String(flags.FailLevel.Name))
	if err != nil {
		return nil, err
	}
	backend, err := progress.ParseBackend(ctx.String(flags.Progress.Name))
	if err != nil {
		return nil, err
	}

	markerTarget := ctx.String(flags.MarkerTarget.Name)
	if !slices.Contains([]string{flags.MarkerTargetSyslog, flags.MarkerTargetFile}, markerTarget) {
		return nil, fmt.Errorf("invalid marker target %q, must be %q or %q",
			markerTarget, flags.MarkerTargetSyslog, flags.MarkerTargetFile)
	}

	sleepTime := ctx.Int(flags.SleepTime.Name)
	resumeTime := ctx.Int(flags.ResumeTime.Name)
	if sleepTime < 0 || resumeTime < 0 {
		return nil, fmt.Errorf("--%s and --%s must not be negative", flags.SleepTime.Name, flags.ResumeTime.Name)
	}
	if ctx.Int(flags.MaxScanLines.Name) < 0 {
		return nil, fmt.Errorf("--%s must not be negative", flags.MaxScanLines.Name)
	}
	if ctx.Duration(flags.LogSettle.Name) < 0 {
		return nil, fmt.Errorf("--%s must not be negative", flags.LogSettle.Name)
	}
	if ctx.Duration(flags.ProcessTimeout.Name) < 0 {
		return nil, fmt.Errorf("--%s must not be negative", flags.ProcessTimeout.Name)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	reportDir := ctx.String(flags.ReportDir.Name)
	if reportDir != "" {
		reportDir, err = filepath.Abs(reportDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for report directory '%s': %w", reportDir, err)
		}
	}

	cfg := &Config{
		Mode:           selectMode(ctx),
		SleepTimeout:   time.Duration(sleepTime) * time.Second,
		ResumeTimeout:  time.Duration(resumeTime) * time.Second,
		ResultsLog:     ctx.String(flags.LogPath.Name),
		FailLevel:      failLevel,
		FwtsBinary:     ctx.String(flags.FwtsBinary.Name),
		ProcessTimeout: ctx.Duration(flags.ProcessTimeout.Name),
		SyslogPath:     ctx.String(flags.SyslogPath.Name),
		MarkerTarget:   markerTarget,
		MaxScanLines:   ctx.Int(flags.MaxScanLines.Name),
		LogSettle:      ctx.Duration(flags.LogSettle.Name),
		Progress:       backend,
		ReportDir:      reportDir,
		TestPlan:       ctx.String(flags.TestPlan.Name),
		HostInfo:       ctx.Bool(flags.HostInfo.Name),
		MetricsConfig:  metricsCfg,
		Log:            log,
	}

	switch cfg.Mode {
	case ModeTests:
		cfg.Tests = ctx.StringSlice(flags.Test.Name)
	case ModeSleep:
		cfg.SleepArgs = ctx.Args().Slice()
		if len(cfg.SleepArgs) == 0 {
			return nil, fmt.Errorf("--%s needs at least one fwts argument, e.g. --%s s3", flags.Sleep.Name, flags.Sleep.Name)
		}
	}
	return cfg, nil
}

// selectMode picks the mode from the selection flag that is set. CheckRequired
// guarantees there is at most one.
func selectMode(ctx *cli.Context) Mode {
	switch {
	case ctx.IsSet(flags.Test.Name):
		return ModeTests
	case ctx.Bool(flags.Sleep.Name):
		return ModeSleep
	case ctx.Bool(flags.HWE.Name):
		return ModeHWE
	case ctx.Bool(flags.QA.Name):
		return ModeQA
	case ctx.Bool(flags.FwtsHelp.Name):
		return ModeFwtsHelp
	case ctx.Bool(flags.List.Name):
		return ModeList
	case ctx.Bool(flags.ListHWE.Name):
		return ModeListHWE
	case ctx.Bool(flags.ListQA.Name):
		return ModeListQA
	}
	return ModeAll
}
