package progress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// processReporter feeds a gauge child process through its stdin.
type processReporter struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	frame func(line string, pct int) string

	mu     sync.Mutex
	closed bool
}

func startProcessReporter(cmd *exec.Cmd, frame func(line string, pct int) string) (*processReporter, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe for %s: %w", cmd.Path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}
	return &processReporter{cmd: cmd, stdin: stdin, frame: frame}, nil
}

func (p *processReporter) Report(it types.SleepIteration, total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("progress reporter is closed")
	}
	_, err := io.WriteString(p.stdin, p.frame(FormatLine(it), Percent(it.Index, total)))
	return err
}

// Close terminates the child and reaps it. It is safe to call more than once.
func (p *processReporter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	_ = p.stdin.Close()
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminating %s: %w", p.cmd.Path, err)
	}
	err := p.cmd.Wait()
	exitErr := &exec.ExitError{}
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("waiting for %s: %w", p.cmd.Path, err)
	}
	return nil
}
