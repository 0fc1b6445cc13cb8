package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-fwts/progress"
	"github.com/ethereum-optimism/infra/op-fwts/runner"
	"github.com/ethereum-optimism/infra/op-fwts/syslog"
	"github.com/ethereum-optimism/infra/op-fwts/types"
)

const EnvVarPrefix = "OP_FWTS"

// Marker targets
const (
	MarkerTargetSyslog = "syslog"
	MarkerTargetFile   = "file"
)

var (
	LogPath = &cli.StringFlag{
		Name:    "log",
		Aliases: []string{"l"},
		Value:   runner.DefaultResultsLog,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG"),
		Usage:   "Location and name of the fwts results log",
	}
	FailLevel = &cli.StringFlag{
		Name:    "fail-level",
		Aliases: []string{"f"},
		Value:   types.SeverityCritical.String(),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_LEVEL"),
		Usage: "fwts failure level that makes op-fwts exit with a failure, one of: " +
			strings.Join(types.SeverityLabels(), ", ") +
			". All failures are reported whatever the level",
	}
	SleepTime = &cli.IntFlag{
		Name:    "sleep-time",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SLEEP_TIME"),
		Usage:   "Max seconds a system may take to enter sleep before the cycle fails (default 10). Only with --sleep",
	}
	ResumeTime = &cli.IntFlag{
		Name:    "resume-time",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESUME_TIME"),
		Usage:   "Max seconds a system may take to resume before the cycle fails (default 3). Only with --sleep",
	}

	// Test selection, mutually exclusive
	Test = &cli.StringSliceFlag{
		Name:    "test",
		Aliases: []string{"t"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST"),
		Usage:   "Name of a test to run. Repeatable, using either --test or -t throughout one command line",
	}
	All = &cli.BoolFlag{
		Name:    "all",
		Aliases: []string{"a"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ALL"),
		Usage:   "Run all automated fwts tests (the default)",
	}
	Sleep = &cli.BoolFlag{
		Name:    "sleep",
		Aliases: []string{"s"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SLEEP"),
		Usage: "Perform sleep tests. Everything after --sleep is passed through to fwts, " +
			"e.g. --sleep s3 --s3-min-delay 30 --s3-multiple 10 --s3-device-check",
	}
	HWE = &cli.BoolFlag{
		Name:    "hwe",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HWE"),
		Usage:   "Run the hardware enablement tests",
	}
	QA = &cli.BoolFlag{
		Name:    "qa",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "QA"),
		Usage:   "Run the QA tests",
	}
	FwtsHelp = &cli.BoolFlag{
		Name:    "fwts-help",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FWTS_HELP"),
		Usage:   "Display the help of fwts itself (lengthy)",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST"),
		Usage:   "List all tests",
	}
	ListHWE = &cli.BoolFlag{
		Name:    "list-hwe",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST_HWE"),
		Usage:   "List the hardware enablement tests",
	}
	ListQA = &cli.BoolFlag{
		Name:    "list-qa",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST_QA"),
		Usage:   "List the QA tests",
	}

	FwtsBinary = &cli.StringFlag{
		Name:    "fwts-binary",
		Value:   runner.DefaultBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FWTS_BINARY"),
		Usage:   "Path to the fwts binary",
	}
	SyslogPath = &cli.StringFlag{
		Name:    "syslog-path",
		Value:   syslog.DefaultLogPath,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SYSLOG_PATH"),
		Usage:   "System log file read back to measure sleep cycles",
	}
	MarkerTarget = &cli.StringFlag{
		Name:    "marker-target",
		Value:   MarkerTargetSyslog,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MARKER_TARGET"),
		Usage:   "Where cycle markers are written: 'syslog' (the syslog daemon) or 'file' (appended to --syslog-path)",
	}
	Progress = &cli.StringFlag{
		Name:    "progress",
		Value:   string(progress.BackendAuto),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS"),
		Usage:   "Sleep progress display: auto, none, zenity, dialog or console",
	}
	MaxScanLines = &cli.IntFlag{
		Name:    "max-scan-lines",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_SCAN_LINES"),
		Usage:   "Max system log lines searched for a cycle's start marker, 0 for the whole file",
	}
	LogSettle = &cli.DurationFlag{
		Name:    "log-settle",
		Value:   2 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_SETTLE"),
		Usage:   "How long to wait for the syslog daemon to flush a cycle's end marker",
	}
	ProcessTimeout = &cli.DurationFlag{
		Name:    "process-timeout",
		Value:   runner.DefaultProcessTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROCESS_TIMEOUT"),
		Usage:   "Max duration of a single fwts invocation (e.g. '30m'), 0 to wait forever",
	}
	ReportDir = &cli.StringFlag{
		Name:    "report-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_DIR"),
		Usage:   "Directory receiving a testrun-<id> report per run. Empty disables reports",
	}
	TestPlan = &cli.StringFlag{
		Name:    "test-plan",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_PLAN"),
		Usage:   "YAML or TOML file replacing the built-in qa/hwe/interactive test lists",
	}
	HostInfo = &cli.BoolFlag{
		Name:    "host-info",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HOST_INFO"),
		Usage:   "Record host facts in the run report",
	}
)

// SelectionFlags may not be combined with each other.
var SelectionFlags = []cli.Flag{
	Test,
	All,
	Sleep,
	HWE,
	QA,
	FwtsHelp,
	List,
	ListHWE,
	ListQA,
}

var optionalFlags = []cli.Flag{
	LogPath,
	FailLevel,
	SleepTime,
	ResumeTime,
	FwtsBinary,
	SyslogPath,
	MarkerTarget,
	Progress,
	MaxScanLines,
	LogSettle,
	ProcessTimeout,
	ReportDir,
	TestPlan,
	HostInfo,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(append([]cli.Flag{}, SelectionFlags...), optionalFlags...)
}

// CheckRequired validates flag combinations that urfave/cli cannot express.
func CheckRequired(ctx *cli.Context) error {
	var set []string
	for _, f := range SelectionFlags {
		if ctx.IsSet(f.Names()[0]) {
			set = append(set, "--"+f.Names()[0])
		}
	}
	if len(set) > 1 {
		return fmt.Errorf("flags %s are mutually exclusive", strings.Join(set, ", "))
	}
	if !ctx.Bool(Sleep.Name) && (ctx.IsSet(SleepTime.Name) || ctx.IsSet(ResumeTime.Name)) {
		return fmt.Errorf("--%s and --%s only apply to the --%s testing option", SleepTime.Name, ResumeTime.Name, Sleep.Name)
	}
	if !ctx.Bool(Sleep.Name) && ctx.Args().Present() {
		return fmt.Errorf("unexpected arguments %q, only --%s takes extra arguments", ctx.Args().Slice(), Sleep.Name)
	}
	return opflags.CheckRequiredXor(ctx)
}
