package runner

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-fwts/types"
)

// Result holds the outcomes of a list of fwts tests.
type Result struct {
	Summary *types.RunSummary
	Runs    []*types.TestRun
}

// TestRunner runs named fwts tests sequentially.
type TestRunner struct {
	executor     Executor
	acpiTestFlag bool
	log          log.Logger
	tracer       trace.Tracer
}

// NewTestRunner creates a TestRunner. When acpiTestFlag is set the
// "acpitests" group is run through --acpitests.
func NewTestRunner(executor Executor, acpiTestFlag bool, logger log.Logger) (*TestRunner, error) {
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &TestRunner{
		executor:     executor,
		acpiTestFlag: acpiTestFlag,
		log:          logger,
		tracer:       otel.Tracer("op-fwts/runner"),
	}, nil
}

// Run executes each test once, in order. Outcomes are keyed by the test
// name as given. The first fatal process error stops the run.
func (r *TestRunner) Run(ctx context.Context, tests []string) (*Result, error) {
	if len(tests) == 0 {
		return nil, errors.New("no tests to run")
	}

	result := &Result{Summary: types.NewRunSummary()}
	for _, test := range tests {
		run, err := r.runTest(ctx, test)
		if err != nil {
			return nil, err
		}
		result.Summary.Set(test, run.Output)
		result.Runs = append(result.Runs, run)
	}
	return result, nil
}

func (r *TestRunner) runTest(ctx context.Context, test string) (*types.TestRun, error) {
	ctx, span := r.tracer.Start(ctx, "fwts-test", trace.WithAttributes(attribute.String("test", test)))
	defer span.End()

	arg := test
	if test == ACPITestsID && r.acpiTestFlag {
		arg = ACPITestsFlag
	}

	run, err := r.executor.Execute(ctx, test, arg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fwts")
		return nil, err
	}
	span.SetAttributes(attribute.Int("exit_code", run.ExitCode))
	r.log.Info("fwts test finished", "test", test, "duration", run.Duration)
	return run, nil
}
