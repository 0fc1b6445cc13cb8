package sleep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		sleepTimeout  time.Duration
		resumeTimeout time.Duration
		wantArgs      []string
		wantIter      int
		wantSleep     time.Duration
		wantResume    time.Duration
		wantErr       string
	}{
		{
			name:       "single s3 cycle with defaults",
			args:       []string{"s3"},
			wantArgs:   []string{"s3"},
			wantIter:   1,
			wantSleep:  DefaultSleepTimeout,
			wantResume: DefaultResumeTimeout,
		},
		{
			name:          "s3-multiple as assignment",
			args:          []string{"s3", "--s3-multiple=5", "--s3-delay-delta=1"},
			sleepTimeout:  20 * time.Second,
			resumeTimeout: 5 * time.Second,
			wantArgs:      []string{"s3", "--s3-delay-delta", "1"},
			wantIter:      5,
			wantSleep:     20 * time.Second,
			wantResume:    5 * time.Second,
		},
		{
			name:       "s4-multiple as separate tokens",
			args:       []string{"s4", "--s4-multiple", "3"},
			wantArgs:   []string{"s4"},
			wantIter:   3,
			wantSleep:  DefaultSleepTimeout,
			wantResume: DefaultResumeTimeout,
		},
		{
			name:          "limits in pass-through args override flags",
			args:          []string{"s3", "--sleep-time", "30", "--resume-time=7"},
			sleepTimeout:  20 * time.Second,
			resumeTimeout: 5 * time.Second,
			wantArgs:      []string{"s3"},
			wantIter:      1,
			wantSleep:     30 * time.Second,
			wantResume:    7 * time.Second,
		},
		{
			name:    "empty args",
			args:    nil,
			wantErr: "at least one fwts argument",
		},
		{
			name:    "only consumed args",
			args:    []string{"--s3-multiple", "2"},
			wantErr: "at least one fwts argument",
		},
		{
			name:    "multiple without value",
			args:    []string{"s3", "--s3-multiple"},
			wantErr: "requires a value",
		},
		{
			name:    "non-numeric multiple",
			args:    []string{"s3", "--s3-multiple", "many"},
			wantErr: "invalid value",
		},
		{
			name:    "zero multiple",
			args:    []string{"s3", "--s3-multiple=0"},
			wantErr: "must be at least 1",
		},
		{
			name:    "non-positive sleep time",
			args:    []string{"s3", "--sleep-time=0"},
			wantErr: "positive number of seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan(tt.args, tt.sleepTimeout, tt.resumeTimeout)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, plan.Args)
			assert.Equal(t, tt.wantIter, plan.Iterations)
			assert.Equal(t, tt.wantSleep, plan.SleepTimeout)
			assert.Equal(t, tt.wantResume, plan.ResumeTimeout)
		})
	}
}

func TestPlanIsS4(t *testing.T) {
	assert.True(t, (&Plan{Args: []string{"s4"}}).IsS4())
	assert.False(t, (&Plan{Args: []string{"s3"}}).IsS4())
	assert.False(t, (&Plan{Args: []string{"--s4-delay-delta"}}).IsS4())
}

func TestNewMarkers(t *testing.T) {
	now := time.Unix(1700000000, 0)

	m := NewMarkers(now, 1)
	assert.Equal(t, "FWTS SLEEP TEST START 1700000000 (cycle 1)", m.Start)
	assert.Equal(t, "FWTS SLEEP TEST STOP 1700000000 (cycle 1)", m.End)

	m10 := NewMarkers(now, 10)
	assert.NotContains(t, m10.Start, m.Start)
	assert.NotEqual(t, m.End, m10.End)
}
