package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbit-maths/tutor-eval/internal/config"
	"github.com/orbit-maths/tutor-eval/internal/eval"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"github.com/orbit-maths/tutor-eval/internal/evalchat"
	"github.com/orbit-maths/tutor-eval/internal/httpx"
	"github.com/orbit-maths/tutor-eval/internal/mongox"
	"github.com/orbit-maths/tutor-eval/internal/tutor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// initMeterProvider initializes an OpenTelemetry MeterProvider with a stdout exporter
func initMeterProvider() (*metric.MeterProvider, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}

	// The reader will export metrics every 30 seconds
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(30*time.Second))),
	)

	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// initTracerProvider exports spans to stdout in batches.
func initTracerProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New()
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tracerProvider, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg := config.Load()

	meterProvider, err := initMeterProvider()
	if err != nil {
		slog.Error("Failed to initialize meter provider", "error", err)
		panic(err)
	}

	tracerProvider, err := initTracerProvider()
	if err != nil {
		slog.Error("Failed to initialize tracer provider", "error", err)
		panic(err)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown tracer provider", "error", err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shutdown meter provider", "error", err)
		}
	}()

	if err := cfg.RequireJudgeCredentials(); err != nil {
		slog.Warn("Judge is not configured, evaluation runs will be rejected", "error", err)
	}
	if cfg.TutorURL == "" {
		slog.Warn("TUTOR_URL is not set, every test case will error")
	}

	db, err := mongox.Connect(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		slog.Error("Failed to connect to mongo", "error", err)
		panic(err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	repo := model.New(db)
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		slog.Warn("Failed to ensure indexes", "error", err)
	}

	runner := eval.NewRunner(
		eval.DefaultCatalog(),
		eval.NewScenarioRunner(tutor.New(cfg.TutorURL, cfg.TutorAPIKey, cfg.TutorTimeout)),
		eval.NewJudge(eval.NewOpenAICompleter(cfg.JudgeAPIKey, cfg.JudgeBaseURL)),
		repo,
		eval.WithPacer(eval.NewIntervalPacer(cfg.TestDelay)),
	)

	server := evalchat.NewServer(runner, repo, cfg)
	server.Use(
		httpx.Logger(),
		httpx.Recovery(),
		httpx.Tracing(),
		httpx.Metrics(),
	)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpx.CORS(server),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Starting the server...", "addr", cfg.HTTPAddr, "catalog", eval.DefaultCatalogVersion)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			panic(err)
		}
	}()

	<-shutdown
	slog.Info("Shutting down server...")

	// Runs are long; give in-flight ones a while to finish and persist.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	slog.Info("Server stopped")
}
