package flags

import (
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

func TestUniqueFlags(t *testing.T) {
	seen := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			if _, ok := seen[name]; ok {
				t.Errorf("duplicate flag name or alias %s", name)
				continue
			}
			seen[name] = struct{}{}
		}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func runCheck(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.App{
		Flags:  Flags,
		Action: CheckRequired,
	}
	return app.Run(append([]string{"op-fwts"}, args...))
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no selection", args: nil},
		{name: "single test", args: []string{"--test", "klog"}},
		{name: "repeated test", args: []string{"-t", "klog", "-t", "mtrr"}},
		{name: "hwe", args: []string{"--hwe", "--fail-level", "high"}},
		{name: "sleep with passthrough", args: []string{"--sleep", "--", "s3", "--s3-multiple", "10"}},
		{name: "sleep with limits", args: []string{"--sleep-time", "20", "--resume-time", "5", "--sleep", "--", "s3"}},
		{name: "two selections", args: []string{"--hwe", "--qa"}, wantErr: "mutually exclusive"},
		{name: "list and test", args: []string{"--list", "-t", "klog"}, wantErr: "mutually exclusive"},
		{name: "sleep time without sleep", args: []string{"--sleep-time", "20"}, wantErr: "only apply to the --sleep"},
		{name: "resume time with qa", args: []string{"--qa", "--resume-time", "5"}, wantErr: "only apply to the --sleep"},
		{name: "stray arguments", args: []string{"--qa", "s3"}, wantErr: "unexpected arguments"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := runCheck(t, tc.args...)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "/tmp/fwts_results.log", ctx.String(LogPath.Name))
			assert.Equal(t, "critical", ctx.String(FailLevel.Name))
			assert.Equal(t, "fwts", ctx.String(FwtsBinary.Name))
			assert.Equal(t, "/var/log/syslog", ctx.String(SyslogPath.Name))
			assert.Equal(t, MarkerTargetSyslog, ctx.String(MarkerTarget.Name))
			assert.Equal(t, "auto", ctx.String(Progress.Name))
			assert.True(t, ctx.Bool(HostInfo.Name))
			assert.Zero(t, ctx.Int(SleepTime.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"op-fwts"}))
}
