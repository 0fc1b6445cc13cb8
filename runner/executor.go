package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/ethereum-optimism/infra/op-fwts/types"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
)

var (
	// ErrExternalProcess is returned when fwts cannot be started or exits
	// without producing a summary.
	ErrExternalProcess = errors.New("fwts process error")
	// ErrTimeout is returned when an fwts invocation outlives its timeout.
	ErrTimeout = errors.New("fwts process timed out")

	versionRegex = regexp.MustCompile(`[Vv]?(\d+)\.(\d+)\.(\d+)`)
)

// CmdBuilder creates the command for one process. The returned function
// releases anything the builder allocated and is always called.
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// WaitDelay bounds how long a killed fwts may keep its output pipes open
// through child processes.
const WaitDelay = time.Second

// DefaultCmdBuilder runs name directly, propagating the trace context of
// ctx through the environment.
func DefaultCmdBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := CommandContext(ctx, name, arg...)
	cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())
	return cmd, func() {}
}

// CommandContext is exec.CommandContext with WaitDelay set, so a cancelled
// command returns even if its children still hold stdout.
func CommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.WaitDelay = WaitDelay
	return cmd
}

var _ Executor = (*fwtsExecutor)(nil)

// Executor runs fwts.
type Executor interface {
	// Execute runs fwts once in summary mode with args appended after the
	// fixed options. testID labels the run.
	Execute(ctx context.Context, testID string, args ...string) (*types.TestRun, error)

	// Version returns the fwts version, e.g. "15.07.00".
	Version(ctx context.Context) (string, error)

	// Help returns the fwts usage text.
	Help(ctx context.Context) (string, error)
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Binary     string        // defaults to DefaultBinary
	ResultsLog string        // defaults to DefaultResultsLog
	Timeout    time.Duration // bound on a single invocation, 0 disables it
	CmdBuilder CmdBuilder    // defaults to DefaultCmdBuilder
	Logger     log.Logger
}

type fwtsExecutor struct {
	binary     string
	resultsLog string
	timeout    time.Duration
	cmdBuilder CmdBuilder
	log        log.Logger
}

// NewExecutor creates a new fwts executor
func NewExecutor(cfg ExecutorConfig) (Executor, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative: %s", cfg.Timeout)
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.ResultsLog == "" {
		cfg.ResultsLog = DefaultResultsLog
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCmdBuilder
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New()
	}
	return &fwtsExecutor{
		binary:     cfg.Binary,
		resultsLog: cfg.ResultsLog,
		timeout:    cfg.Timeout,
		cmdBuilder: cfg.CmdBuilder,
		log:        cfg.Logger,
	}, nil
}

// processOutput is what one fwts process left behind.
type processOutput struct {
	stdout   string
	stderr   string
	exitCode int
	duration time.Duration
	exited   bool // false when the process could not be started
}

// Execute implements Executor. A non-zero exit is only an error when fwts
// also produced no summary, since fwts exits non-zero whenever a test fails.
func (e *fwtsExecutor) Execute(ctx context.Context, testID string, args ...string) (*types.TestRun, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	e.log.Info("Running fwts", "test", testID, "args", args)

	out, err := e.run(ctx, e.buildArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", testID, err)
	}

	run := &types.TestRun{
		ID:       testID,
		Args:     args,
		Output:   out.stdout,
		ExitCode: out.exitCode,
		Duration: out.duration,
	}
	if !out.exited {
		return nil, fmt.Errorf("%w: %s: starting %s: %s", ErrExternalProcess, testID, e.binary, out.stderr)
	}
	if out.exitCode != 0 && run.Output == "" {
		return nil, fmt.Errorf("%w: %s: exited with code %d and no summary: %s",
			ErrExternalProcess, testID, out.exitCode, out.stderr)
	}

	e.log.Debug("fwts finished", "test", testID, "exitCode", run.ExitCode, "duration", run.Duration)
	return run, nil
}

// Version implements Executor.
func (e *fwtsExecutor) Version(ctx context.Context) (string, error) {
	out, err := e.run(ctx, VersionFlag)
	if err != nil {
		return "", err
	}
	if !out.exited {
		return "", fmt.Errorf("%w: starting %s: %s", ErrExternalProcess, e.binary, out.stderr)
	}
	version := versionRegex.FindStringSubmatch(out.stdout)
	if version == nil {
		return "", fmt.Errorf("%w: no version in %q", ErrExternalProcess, out.stdout)
	}
	return fmt.Sprintf("%s.%s.%s", version[1], version[2], version[3]), nil
}

// Help implements Executor.
func (e *fwtsExecutor) Help(ctx context.Context) (string, error) {
	out, err := e.run(ctx, HelpFlag)
	if err != nil {
		return "", err
	}
	if !out.exited || (out.exitCode != 0 && out.stdout == "") {
		return "", fmt.Errorf("%w: %s %s: %s", ErrExternalProcess, e.binary, HelpFlag, out.stderr)
	}
	return out.stdout, nil
}

// run starts the binary and waits for it. The error is non-nil only for
// cancellation and timeouts; start failures are reported via exited.
func (e *fwtsExecutor) run(ctx context.Context, args ...string) (*processOutput, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd, cleanup := e.cmdBuilder(runCtx, e.binary, args...)
	defer cleanup()

	stdout := newOutputTail(defaultOutputTailBytes)
	stderr := newOutputTail(64 * 1024)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	startTime := time.Now()
	runErr := cmd.Run()
	out := &processOutput{
		stdout:   stdout.String(),
		duration: time.Since(startTime),
		exited:   true,
	}
	if stdout.Dropped() {
		e.log.Warn("fwts output truncated", "bytes", stdout.Written())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}

	if runErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			out.exitCode = exitErr.ExitCode()
		} else {
			out.exited = false
			out.stderr = runErr.Error()
			return out, nil
		}
	}
	out.stderr = stderr.String()
	return out, nil
}

func (e *fwtsExecutor) buildArgs(args []string) []string {
	full := make([]string, 0, len(args)+4)
	full = append(full, QuietFlag, StdoutSummaryFlag, ResultsLogFlag, e.resultsLog)
	return append(full, args...)
}
