package httpx

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/orbit-maths/tutor-eval/internal/httpx"

type metricsMiddleware struct {
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCounter    metric.Int64Counter
}

func newMetricsMiddleware() (*metricsMiddleware, error) {
	meter := otel.Meter(meterName)

	requestCounter, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Evaluation runs take minutes, so the histogram is in seconds rather than ms.
	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"http.server.request.errors",
		metric.WithDescription("Total number of 4xx and 5xx responses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsMiddleware{
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		errorCounter:    errorCounter,
	}, nil
}

// Metrics returns a middleware that records request count, duration and errors,
// labelled by route template so run IDs do not explode cardinality.
func Metrics() func(handler http.Handler) http.Handler {
	mm, err := newMetricsMiddleware()
	if err != nil {
		return func(handler http.Handler) http.Handler {
			return handler
		}
	}

	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			saw := &statusAwareResponseWriter{ResponseWriter: w}

			handler.ServeHTTP(saw, r)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routeTemplate(r)),
				attribute.Int("http.status_code", saw.Status()),
			)

			mm.requestCounter.Add(r.Context(), 1, attrs)
			mm.requestDuration.Record(r.Context(), time.Since(startTime).Seconds(), attrs)
			if saw.Status() >= 400 {
				mm.errorCounter.Add(r.Context(), 1, attrs)
			}
		})
	}
}
