package eval

import (
	"context"

	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/orbit-maths/tutor-eval/internal/eval"

// runMetrics holds the instruments recorded once per test case.
type runMetrics struct {
	testCounter  metric.Int64Counter
	testDuration metric.Float64Histogram
}

// newRunMetrics returns nil when the instruments cannot be created; record is a
// no-op on a nil receiver.
func newRunMetrics() *runMetrics {
	meter := otel.Meter(meterName)

	testCounter, err := meter.Int64Counter(
		"eval.tests.count",
		metric.WithDescription("Number of evaluated test cases by outcome"),
		metric.WithUnit("{test}"),
	)
	if err != nil {
		return nil
	}

	testDuration, err := meter.Float64Histogram(
		"eval.test.duration",
		metric.WithDescription("Duration of a test case including tutor and judge calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil
	}

	return &runMetrics{
		testCounter:  testCounter,
		testDuration: testDuration,
	}
}

func (m *runMetrics) record(ctx context.Context, res *model.Result) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("eval.outcome", string(res.Outcome)),
		attribute.String("eval.category", res.TestCategory),
	)
	m.testCounter.Add(ctx, 1, attrs)
	m.testDuration.Record(ctx, float64(res.DurationMs), attrs)
}
