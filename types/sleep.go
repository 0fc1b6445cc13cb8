package types

// Status is the verdict of a single sleep cycle or of a whole sleep run.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// SleepIteration captures one suspend/resume cycle.
type SleepIteration struct {
	Index         int     `json:"index"`          // 0-based cycle number
	Status        Status  `json:"status"`         // PASS only if the end marker was seen and timings are sane
	SleepElapsed  float64 `json:"sleep_elapsed"`  // seconds from "PM: Syncing filesystems" to the line before resume
	ResumeElapsed float64 `json:"resume_elapsed"` // seconds from resume to "Restarting tasks"
	Error         string  `json:"error,omitempty"`
}

// Failed reports whether the cycle did not pass.
func (it SleepIteration) Failed() bool {
	return it.Status != StatusPass
}
