package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"github.com/twitchtv/twirp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptySelection is returned when a run would execute no test cases.
var ErrEmptySelection = twirp.NewError(twirp.InvalidArgument, "no test cases match the selection")

// Runner executes runs: it selects test cases, drives each through the tutor and
// the judge, persists every result and tallies the outcome.
type Runner struct {
	catalog   *Catalog
	scenarios *ScenarioRunner
	judge     *Judge
	store     Store
	pacer     Pacer
	metrics   *runMetrics
	newRunID  func() string
	now       func() time.Time
}

type RunnerOption func(*Runner)

// WithPacer sets the pacing between consecutive test cases. The default runs
// without delay.
func WithPacer(p Pacer) RunnerOption {
	return func(r *Runner) { r.pacer = p }
}

func WithRunIDGenerator(fn func() string) RunnerOption {
	return func(r *Runner) { r.newRunID = fn }
}

func WithClock(fn func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = fn }
}

func NewRunner(catalog *Catalog, scenarios *ScenarioRunner, judge *Judge, store Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		catalog:   catalog,
		scenarios: scenarios,
		judge:     judge,
		store:     store,
		pacer:     NewIntervalPacer(0),
		metrics:   newRunMetrics(),
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Catalog() *Catalog {
	return r.catalog
}

// tally accumulates the counts of a single run.
type tally struct {
	passed, failed, errored int
	results                 []*model.Result
}

func (t *tally) add(res *model.Result) {
	t.results = append(t.results, res)
	switch {
	case res.Passed:
		t.passed++
	case res.Outcome == model.OutcomeError:
		t.failed++
		t.errored++
	default:
		t.failed++
	}
}

// Execute runs every test case matching sel, one at a time, and returns the summary.
// A failing test case never stops the run.
func (r *Runner) Execute(ctx context.Context, sel Selection, judgeModel string) (*RunSummary, error) {
	cases := r.catalog.Select(sel)
	if len(cases) == 0 {
		return nil, ErrEmptySelection
	}

	runID := r.newRunID()
	startTime := r.now()

	slog.InfoContext(ctx, "Starting evaluation run",
		"run_id", runID,
		"total_tests", len(cases),
		"judge_model", judgeModel)

	t := tally{results: make([]*model.Result, 0, len(cases))}

	for i, tc := range cases {
		if i > 0 {
			if err := r.pacer.Wait(ctx); err != nil {
				slog.WarnContext(ctx, "Pacing wait interrupted", "run_id", runID, "error", err)
			}
		}

		slog.InfoContext(ctx, "Running test case",
			"run_id", runID,
			"test", tc.Name,
			"progress", fmt.Sprintf("%d/%d", i+1, len(cases)))

		res := r.RunSingle(ctx, runID, tc, judgeModel)

		if err := r.store.AppendResult(ctx, res); err != nil {
			slog.ErrorContext(ctx, "Failed to persist result", "run_id", runID, "test", tc.Name, "error", err)
		}

		t.add(res)
	}

	summary := &RunSummary{
		RunID:          runID,
		CatalogVersion: r.catalog.Version(),
		JudgeModel:     judgeModel,
		Total:          len(t.results),
		Passed:         t.passed,
		Failed:         t.failed,
		Errored:        t.errored,
		PassRate:       PassRate(t.passed, len(t.results)),
		Results:        t.results,
	}

	slog.InfoContext(ctx, "Evaluation run completed",
		"run_id", runID,
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"pass_rate", summary.PassRate,
		"duration", r.now().Sub(startTime))

	return summary, nil
}

// RunSingle executes one test case and returns its result. Errors are recorded in
// the result rather than returned.
func (r *Runner) RunSingle(ctx context.Context, runID string, tc TestCase, judgeModel string) *model.Result {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Runner.runTest",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("test.name", tc.Name),
			attribute.String("test.category", tc.Category),
		),
	)
	defer span.End()

	startTime := r.now()
	res := newResult(runID, tc, judgeModel)

	verdict, reply, err := r.runTest(ctx, tc, judgeModel)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Test case errored", "run_id", runID, "test", tc.Name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "test execution error")

		reason := "test execution error: " + err.Error()
		res.OrbitResponse = "ERROR: " + err.Error()
		res.Outcome = model.OutcomeError
		res.FailureReason = &reason
		if reply != "" {
			res.LexicalRedFlags = ScanRedFlags(reply, tc.RedFlags)
		}
	default:
		res.OrbitResponse = reply
		res.Passed = verdict.Pass
		res.RedFlagsFound = verdict.RedFlagsFound
		res.JudgeReason = verdict.Reason
		res.LexicalRedFlags = ScanRedFlags(reply, tc.RedFlags)

		if verdict.Pass {
			res.Outcome = model.OutcomePass
			if len(res.LexicalRedFlags) > 0 {
				slog.WarnContext(ctx, "Judge passed a reply containing red flags",
					"run_id", runID,
					"test", tc.Name,
					"red_flags", res.LexicalRedFlags)
			}
		} else {
			reason := verdict.Reason
			if reason == "" {
				reason = "judge reported failure without a reason"
			}
			res.Outcome = model.OutcomeFail
			res.FailureReason = &reason
		}
		span.SetStatus(codes.Ok, string(res.Outcome))
	}

	res.CreatedAt = r.now()
	res.DurationMs = res.CreatedAt.Sub(startTime).Milliseconds()
	span.SetAttributes(attribute.String("test.outcome", string(res.Outcome)))
	r.metrics.record(ctx, res)

	return res
}

// runTest returns the tutor's reply even when judging it failed. A panic in
// either call is reported as an error for this test case only.
func (r *Runner) runTest(ctx context.Context, tc TestCase, judgeModel string) (verdict Verdict, reply string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	scenario, err := r.scenarios.Run(ctx, tc)
	if err != nil {
		return Verdict{}, "", err
	}

	verdict, err = r.judge.Judge(ctx, tc, scenario.Reply, judgeModel)
	if err != nil {
		return Verdict{}, scenario.Reply, err
	}

	return verdict, scenario.Reply, nil
}

func newResult(runID string, tc TestCase, judgeModel string) *model.Result {
	return &model.Result{
		RunID:            runID,
		TestName:         tc.Name,
		TestCategory:     tc.Category,
		TestSetup:        tc.Setup,
		StudentInput:     tc.StudentInput,
		ExpectedBehavior: tc.ExpectedBehavior,
		RedFlags:         append([]string{}, tc.RedFlags...),
		RedFlagsFound:    []string{},
		JudgeModel:       judgeModel,
	}
}
