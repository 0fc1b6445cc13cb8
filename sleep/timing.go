package sleep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Kernel log lines bracketing a suspend/resume cycle.
const (
	SyncingFilesystems = "PM: Syncing filesystems"
	LowLevelResume     = "ACPI: Low-level resume complete"
	RestartingTasks    = "Restarting tasks"
)

var (
	// ErrMalformedLog is returned when the expected kernel lines are missing,
	// out of place, or carry no parseable timestamp.
	ErrMalformedLog = errors.New("malformed sleep log")
	// ErrNegativeDuration is returned when the parsed timestamps produce a
	// negative sleep or resume time.
	ErrNegativeDuration = errors.New("negative sleep/resume duration")
)

// Timing is the measurement recovered from one log window.
type Timing struct {
	Status        types.Status
	SleepElapsed  float64
	ResumeElapsed float64
}

// ParseTiming scans a log window in a single forward pass and recovers the
// sleep and resume durations of one cycle.
//
// The sleep starts at "PM: Syncing filesystems" and ends at the line right
// before "ACPI: Low-level resume complete". The resume starts at that line
// and ends at "Restarting tasks". Status is PASS only if a line containing
// endMarker is reached; scanning stops there.
//
// On ErrMalformedLog the returned Timing is FAIL with zero durations. On
// ErrNegativeDuration it is FAIL but carries the computed durations.
func ParseTiming(window []string, endMarker string) (Timing, error) {
	res := Timing{Status: types.StatusFail}

	var (
		sleepStart, sleepEnd, resumeStart, resumeEnd float64
		haveSleepStart, haveResume, haveResumeEnd    bool
	)

	for i, line := range window {
		if strings.Contains(line, SyncingFilesystems) {
			ts, err := bracketTimestamp(line)
			if err != nil {
				return res, fmt.Errorf("%w: line %d: %v", ErrMalformedLog, i, err)
			}
			sleepStart, haveSleepStart = ts, true
		}
		if strings.Contains(line, LowLevelResume) {
			if i == 0 {
				return res, fmt.Errorf("%w: %q is the first line of the window", ErrMalformedLog, LowLevelResume)
			}
			end, err := bracketTimestamp(window[i-1])
			if err != nil {
				return res, fmt.Errorf("%w: line %d: %v", ErrMalformedLog, i-1, err)
			}
			start, err := bracketTimestamp(line)
			if err != nil {
				return res, fmt.Errorf("%w: line %d: %v", ErrMalformedLog, i, err)
			}
			sleepEnd, resumeStart, haveResume = end, start, true
		}
		if strings.Contains(line, RestartingTasks) {
			ts, err := bracketTimestamp(line)
			if err != nil {
				return res, fmt.Errorf("%w: line %d: %v", ErrMalformedLog, i, err)
			}
			resumeEnd, haveResumeEnd = ts, true
		}
		if endMarker != "" && strings.Contains(line, endMarker) {
			res.Status = types.StatusPass
			break
		}
	}

	var missing []string
	if !haveSleepStart {
		missing = append(missing, SyncingFilesystems)
	}
	if !haveResume {
		missing = append(missing, LowLevelResume)
	}
	if !haveResumeEnd {
		missing = append(missing, RestartingTasks)
	}
	if len(missing) > 0 {
		res.Status = types.StatusFail
		return res, fmt.Errorf("%w: missing %s", ErrMalformedLog, strings.Join(missing, ", "))
	}

	res.SleepElapsed = sleepEnd - sleepStart
	res.ResumeElapsed = resumeEnd - resumeStart
	if res.SleepElapsed < 0 || res.ResumeElapsed < 0 {
		res.Status = types.StatusFail
		return res, fmt.Errorf("%w: sleep %0.5fs, resume %0.5fs", ErrNegativeDuration, res.SleepElapsed, res.ResumeElapsed)
	}
	return res, nil
}

// bracketTimestamp returns the kernel timestamp of a log line, i.e. the
// token between the first '[' and the next bracket, as seconds.
func bracketTimestamp(line string) (float64, error) {
	open := strings.IndexByte(line, '[')
	if open < 0 {
		return 0, fmt.Errorf("no bracketed timestamp in %q", line)
	}
	token := line[open+1:]
	if end := strings.IndexAny(token, "[]"); end >= 0 {
		token = token[:end]
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", strings.TrimSpace(token), err)
	}
	return ts, nil
}
