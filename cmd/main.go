package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	fwts "github.com/ethereum-optimism/infra/op-fwts"
	"github.com/ethereum-optimism/infra/op-fwts/exitcodes"
	"github.com/ethereum-optimism/infra/op-fwts/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load .env file", "err", err)
	}

	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, passThroughArgs(os.Args))
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-fwts"
	app.Usage = "Run the firmware test suite and measure sleep/resume cycles"
	app.Description = "op-fwts runs fwts tests, or repeated suspend/resume cycles timed from the kernel log, " +
		"and exits non-zero when a result reaches the fail level.\n\n" +
		"Example:\n   op-fwts --sleep s3 --s3-min-delay 30 --s3-multiple 10 --s3-device-check"
	app.ArgsUsage = "[fwts sleep arguments]"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps a run error to the process exit code. Anything that is not
// a qualifying test failure means the run could not be completed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case fwts.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}

// passThroughArgs inserts "--" after --sleep so that everything following it
// reaches fwts untouched instead of being parsed as op-fwts flags.
func passThroughArgs(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args
		}
		if arg != "--"+flags.Sleep.Name && !slices.Contains(flags.Sleep.Aliases, trimDashes(arg)) {
			continue
		}
		if i+1 < len(args) && args[i+1] == "--" {
			return args
		}
		out := append(slices.Clone(args[:i+1]), "--")
		return append(out, args[i+1:]...)
	}
	return args
}

// trimDashes returns the name of a single dash short flag, "" otherwise.
func trimDashes(arg string) string {
	if len(arg) > 1 && arg[0] == '-' && arg[1] != '-' {
		return arg[1:]
	}
	return ""
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := fwts.NewConfig(ctx, log)
	if err != nil {
		return nil, fwts.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "mode", cfg.Mode, "fail_level", cfg.FailLevel, "results_log", cfg.ResultsLog,
		"syslog", cfg.SyslogPath, "report_dir", cfg.ReportDir)

	app, err := fwts.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, fwts.NewRuntimeError(fmt.Errorf("failed to create op-fwts: %w", err))
	}
	return app, nil
}
