package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptBuilder returns a CmdBuilder that runs script with sh instead of
// the named binary. The binary arguments are available as "$@".
func scriptBuilder(script string) CmdBuilder {
	return func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
		shArgs := append([]string{"-c", script, name}, arg...)
		return CommandContext(ctx, "sh", shArgs...), func() {}
	}
}

func newTestExecutor(t *testing.T, script string, timeout time.Duration) Executor {
	t.Helper()
	e, err := NewExecutor(ExecutorConfig{
		ResultsLog: "/tmp/results.log",
		Timeout:    timeout,
		CmdBuilder: scriptBuilder(script),
		Logger:     log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)
	return e
}

func TestNewExecutor(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{})
	require.NoError(t, err)
	fe := e.(*fwtsExecutor)
	assert.Equal(t, DefaultBinary, fe.binary)
	assert.Equal(t, DefaultResultsLog, fe.resultsLog)
	assert.NotNil(t, fe.cmdBuilder)

	_, err = NewExecutor(ExecutorConfig{Timeout: -time.Second})
	assert.Error(t, err)
}

func TestExecutePassesFixedOptions(t *testing.T) {
	e := newTestExecutor(t, `echo "$@"`, 0)

	run, err := e.Execute(context.Background(), "klog", "klog")
	require.NoError(t, err)
	assert.Equal(t, "klog", run.ID)
	assert.Equal(t, []string{"klog"}, run.Args)
	assert.Equal(t, "-q --stdout-summary -r /tmp/results.log klog", run.Output)
	assert.Equal(t, 0, run.ExitCode)
	assert.Greater(t, run.Duration, time.Duration(0))
}

func TestExecuteExitCodes(t *testing.T) {
	tests := []struct {
		name         string
		script       string
		wantOutput   string
		wantExitCode int
		wantErr      error
	}{
		{
			name:         "failing tests still produce a summary",
			script:       `printf '\nFAILED_HIGH\n'; exit 1`,
			wantOutput:   "FAILED_HIGH",
			wantExitCode: 1,
		},
		{
			name:    "non-zero exit without summary",
			script:  `echo "fwts: cannot open results log" >&2; exit 2`,
			wantErr: ErrExternalProcess,
		},
		{
			name:       "clean exit without summary",
			script:     `exit 0`,
			wantOutput: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t, tt.script, 0)
			run, err := e.Execute(context.Background(), "mtrr", "mtrr")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "cannot open results log")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, run.Output)
			assert.Equal(t, tt.wantExitCode, run.ExitCode)
		})
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	e, err := NewExecutor(ExecutorConfig{
		Binary: "/nonexistent/fwts",
		Logger: log.NewLogger(log.DiscardHandler()),
		CmdBuilder: func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
			return exec.CommandContext(ctx, name, arg...), func() {}
		},
	})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "version", "version")
	require.ErrorIs(t, err, ErrExternalProcess)
	_, err = e.Version(context.Background())
	require.ErrorIs(t, err, ErrExternalProcess)
}

func TestExecuteTimeout(t *testing.T) {
	e := newTestExecutor(t, `exec sleep 5`, 100*time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep", "s3")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecuteTimeoutWithChildHoldingOutput(t *testing.T) {
	e := newTestExecutor(t, `sleep 10 & wait`, 100*time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep", "s3")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDefaultCmdBuilderSetsWaitDelay(t *testing.T) {
	cmd, cleanup := DefaultCmdBuilder(context.Background(), "fwts", "--version")
	defer cleanup()
	assert.Equal(t, WaitDelay, cmd.WaitDelay)
	assert.Equal(t, []string{"fwts", "--version"}, cmd.Args)
}

func TestExecuteCancelled(t *testing.T) {
	e := newTestExecutor(t, `echo PASSED`, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "klog", "klog")
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteCleanupIsCalled(t *testing.T) {
	cleaned := false
	e, err := NewExecutor(ExecutorConfig{
		Logger: log.NewLogger(log.DiscardHandler()),
		CmdBuilder: func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
			return exec.CommandContext(ctx, "sh", "-c", "echo PASSED"), func() { cleaned = true }
		},
	})
	require.NoError(t, err)

	run, err := e.Execute(context.Background(), "oops", "oops")
	require.NoError(t, err)
	assert.Equal(t, "PASSED", run.Output)
	assert.True(t, cleaned)
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    string
		wantErr bool
	}{
		{name: "release banner", script: `echo "fwts, Version V15.07.00, 2015-07-02 08:14:23"`, want: "15.07.00"},
		{name: "lower case prefix", script: `echo "fwts v21.09.00"`, want: "21.09.00"},
		{name: "no version", script: `echo "fwts"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t, tt.script, 0)
			got, err := e.Version(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExternalProcess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHelp(t *testing.T) {
	e := newTestExecutor(t, `echo "Usage: fwts [OPTION] [TEST]"; echo "$@"`, 0)
	out, err := e.Help(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Usage: fwts"))
	assert.True(t, strings.HasSuffix(out, HelpFlag))
}

func TestOutputTail(t *testing.T) {
	o := newOutputTail(8)
	_, _ = o.Write([]byte("  hello "))
	assert.False(t, o.Dropped())
	assert.Equal(t, "hello", o.String())

	_, _ = o.Write([]byte("world!"))
	assert.True(t, o.Dropped())
	assert.Equal(t, int64(14), o.Written())
	assert.Equal(t, "o world!", o.String())
}
