// Package progress reports sleep cycles to the user while a sleep run is in
// progress, either through a zenity/dialog gauge or as plain console lines.
package progress

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Backend selects how progress is shown.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendNone    Backend = "none"
	BackendZenity  Backend = "zenity"
	BackendDialog  Backend = "dialog"
	BackendConsole Backend = "console"
)

// Backends lists the accepted backend names.
var Backends = []Backend{BackendAuto, BackendNone, BackendZenity, BackendDialog, BackendConsole}

// Reporter receives one report per measured cycle and must be closed once
// the run ends, whatever the outcome.
type Reporter interface {
	Report(it types.SleepIteration, total int) error
	Close() error
}

// ParseBackend converts a flag value into a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BackendAuto, nil
	}
	if !slices.Contains(Backends, b) {
		names := make([]string, len(Backends))
		for i, b := range Backends {
			names[i] = string(b)
		}
		return "", fmt.Errorf("invalid progress backend %q, must be one of: %s", s, strings.Join(names, ", "))
	}
	return b, nil
}

// ResolveBackend turns BackendAuto into a concrete backend: zenity when a
// display is available and zenity is installed, dialog when there is no
// display and dialog is installed, console otherwise. Other backends are
// returned as is.
func ResolveBackend(requested Backend, display string, lookPath func(string) (string, error)) Backend {
	if requested != BackendAuto {
		return requested
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	installed := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}
	if display != "" && installed(string(BackendZenity)) {
		return BackendZenity
	}
	if display == "" && installed(string(BackendDialog)) {
		return BackendDialog
	}
	return BackendConsole
}

// New creates the Reporter for a resolved backend. Console output goes to
// out, os.Stdout when nil.
func New(backend Backend, out io.Writer) (Reporter, error) {
	if out == nil {
		out = os.Stdout
	}
	switch backend {
	case BackendNone:
		return noopReporter{}, nil
	case BackendConsole:
		return &consoleReporter{out: out}, nil
	case BackendZenity:
		return startProcessReporter(exec.Command("zenity", "--progress", "--text", "Progress", "--auto-close"), ZenityFrame)
	case BackendDialog:
		cmd := exec.Command("dialog", "--gauge", "Progress", "20", "70")
		// dialog draws on the terminal
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return startProcessReporter(cmd, DialogFrame)
	default:
		return nil, fmt.Errorf("progress backend %q must be resolved first", backend)
	}
}

// FormatLine renders the human readable line for one cycle.
func FormatLine(it types.SleepIteration) string {
	return fmt.Sprintf(" - Cycle %d: Status: %s  Sleep Elapsed: %0.5f    Resume Elapsed:  %0.5f",
		it.Index, it.Status, it.SleepElapsed, it.ResumeElapsed)
}

// Percent is the gauge position after cycle index of total, with index
// counted from zero.
func Percent(index, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * index / total
}

// ZenityFrame is the stdin payload for zenity --progress.
func ZenityFrame(line string, pct int) string {
	return fmt.Sprintf("# %s\n%d\n", line, pct)
}

// DialogFrame is the stdin payload for dialog --gauge.
func DialogFrame(line string, pct int) string {
	return fmt.Sprintf("XXX\n%d\nTest progress\n%s\nXXX\n", pct, line)
}

type noopReporter struct{}

func (noopReporter) Report(types.SleepIteration, int) error { return nil }
func (noopReporter) Close() error                           { return nil }

type consoleReporter struct {
	out io.Writer
}

func (c *consoleReporter) Report(it types.SleepIteration, _ int) error {
	_, err := fmt.Fprintln(c.out, FormatLine(it))
	return err
}

func (c *consoleReporter) Close() error { return nil }
