package sleep

import (
	"fmt"
	"time"
)

const markerPrefix = "FWTS SLEEP TEST"

// Markers bound the log window of one cycle.
type Markers struct {
	Start string
	End   string
}

// NewMarkers derives the markers of a cycle from the wall clock. The cycle
// number is part of the marker so that two cycles started within the same
// second never share one, and the closing parenthesis keeps "cycle 1" from
// matching inside "cycle 10".
func NewMarkers(now time.Time, cycle int) Markers {
	ts := now.Unix()
	return Markers{
		Start: fmt.Sprintf("%s START %d (cycle %d)", markerPrefix, ts, cycle),
		End:   fmt.Sprintf("%s STOP %d (cycle %d)", markerPrefix, ts, cycle),
	}
}
