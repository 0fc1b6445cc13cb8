package sleep

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSleepTimeout  = 10 * time.Second
	DefaultResumeTimeout = 3 * time.Second

	s3MultipleArg = "--s3-multiple"
	s4MultipleArg = "--s4-multiple"
	sleepTimeArg  = "--sleep-time"
	resumeTimeArg = "--resume-time"

	// S4 selects hibernation. Hibernate cycles are run but not measured.
	S4 = "s4"
)

// Plan describes a sleep run: the arguments passed through to fwts for each
// cycle, the number of cycles and the per-cycle time limits.
type Plan struct {
	Args          []string
	Iterations    int
	SleepTimeout  time.Duration
	ResumeTimeout time.Duration
}

// NewPlan builds a Plan from the raw pass-through arguments given after
// --sleep. "--opt=value" tokens are split. --s3-multiple/--s4-multiple are
// consumed as the iteration count since cycles are driven here rather than
// by fwts, and --sleep-time/--resume-time are consumed as limits,
// overriding sleepTimeout and resumeTimeout. Zero limits fall back to the
// defaults.
func NewPlan(rawArgs []string, sleepTimeout, resumeTimeout time.Duration) (*Plan, error) {
	args := splitAssignments(rawArgs)

	plan := &Plan{
		Iterations:    1,
		SleepTimeout:  sleepTimeout,
		ResumeTimeout: resumeTimeout,
	}

	var err error
	for _, name := range []string{s3MultipleArg, s4MultipleArg} {
		var n int
		var found bool
		args, n, found, err = takeIntArg(args, name)
		if err != nil {
			return nil, err
		}
		if found {
			if n < 1 {
				return nil, fmt.Errorf("%s must be at least 1, got %d", name, n)
			}
			plan.Iterations = n
		}
	}

	for _, lim := range []struct {
		name string
		dst  *time.Duration
	}{
		{resumeTimeArg, &plan.ResumeTimeout},
		{sleepTimeArg, &plan.SleepTimeout},
	} {
		var secs int
		var found bool
		args, secs, found, err = takeIntArg(args, lim.name)
		if err != nil {
			return nil, err
		}
		if found {
			if secs < 1 {
				return nil, fmt.Errorf("%s must be a positive number of seconds, got %d", lim.name, secs)
			}
			*lim.dst = time.Duration(secs) * time.Second
		}
	}

	if plan.SleepTimeout <= 0 {
		plan.SleepTimeout = DefaultSleepTimeout
	}
	if plan.ResumeTimeout <= 0 {
		plan.ResumeTimeout = DefaultResumeTimeout
	}
	if len(args) == 0 {
		return nil, errors.New("sleep mode needs at least one fwts argument, e.g. s3")
	}
	plan.Args = args
	return plan, nil
}

// IsS4 reports whether the plan runs hibernate cycles, which leave no
// usable suspend timings in the kernel log.
func (p *Plan) IsS4() bool {
	return slices.Contains(p.Args, S4)
}

func splitAssignments(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			out = append(out, strings.Split(arg, "=")...)
		} else {
			out = append(out, arg)
		}
	}
	return out
}

// takeIntArg removes "name N" from args and returns N.
func takeIntArg(args []string, name string) ([]string, int, bool, error) {
	idx := slices.Index(args, name)
	if idx < 0 {
		return args, 0, false, nil
	}
	if idx+1 >= len(args) {
		return nil, 0, false, fmt.Errorf("%s requires a value", name)
	}
	n, err := strconv.Atoi(args[idx+1])
	if err != nil {
		return nil, 0, false, fmt.Errorf("invalid value %q for %s: %w", args[idx+1], name, err)
	}
	rest := make([]string, 0, len(args)-2)
	rest = append(rest, args[:idx]...)
	rest = append(rest, args[idx+2:]...)
	return rest, n, true, nil
}
