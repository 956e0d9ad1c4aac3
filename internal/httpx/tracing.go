package httpx

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/orbit-maths/tutor-eval/internal/httpx"

// Tracing returns a middleware that starts a server span per request. Evaluation
// spans started by handlers become its children.
func Tracing() func(handler http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			route := routeTemplate(r)
			ctx, span := tracer.Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", route),
					attribute.String("http.target", r.URL.RequestURI()),
					attribute.String("http.host", r.Host),
				),
			)
			defer span.End()

			if id, ok := mux.Vars(r)["runId"]; ok {
				span.SetAttributes(attribute.String("run.id", id))
			}

			saw := &statusAwareResponseWriter{ResponseWriter: w}
			handler.ServeHTTP(saw, r.WithContext(ctx))

			status := saw.Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			switch {
			case status >= 500:
				span.SetStatus(codes.Error, "server error")
			case status >= 400:
				span.SetStatus(codes.Error, "client error")
			default:
				span.SetStatus(codes.Ok, "success")
			}
		})
	}
}

// routeTemplate returns the matched mux route template, or the raw path when the
// request did not go through a mux route.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
