package types

import (
	"fmt"
	"strings"
)

// Severity is the ordered failure-severity scale reported by fwts.
// The integer values define the order used for threshold comparison.
type Severity int

const (
	SeverityAborted  Severity = -1
	SeverityNone     Severity = 0
	SeverityLow      Severity = 1
	SeverityMedium   Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4
)

// AllSeverities lists every fail level accepted on the command line,
// in the order they are presented to users.
var AllSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityNone,
	SeverityAborted,
}

// ParseSeverity parses a fail level label such as "critical" or "aborted".
// Labels are case-insensitive and may carry the fwts "FAILED_" prefix.
func ParseSeverity(label string) (Severity, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.TrimPrefix(l, "failed_")
	for _, s := range AllSeverities {
		if s.String() == l {
			return s, nil
		}
	}
	return SeverityNone, fmt.Errorf("invalid fail level %q, must be one of: %s", label, strings.Join(SeverityLabels(), ", "))
}

// SeverityLabels returns the labels of AllSeverities.
func SeverityLabels() []string {
	labels := make([]string, 0, len(AllSeverities))
	for _, s := range AllSeverities {
		labels = append(labels, s.String())
	}
	return labels
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	case SeverityNone:
		return "none"
	case SeverityAborted:
		return "aborted"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Marker returns the token fwts prints in its summary for this severity,
// e.g. "FAILED_HIGH". SeverityNone has no marker.
func (s Severity) Marker() string {
	switch s {
	case SeverityNone:
		return ""
	case SeverityAborted:
		return MarkerAborted
	default:
		return "FAILED_" + strings.ToUpper(s.String())
	}
}

// Outcome markers searched for in the fwts summary output.
const (
	MarkerCritical = "FAILED_CRITICAL"
	MarkerHigh     = "FAILED_HIGH"
	MarkerMedium   = "FAILED_MEDIUM"
	MarkerLow      = "FAILED_LOW"
	MarkerPassed   = "PASSED"
	MarkerAborted  = "ABORTED"
)
