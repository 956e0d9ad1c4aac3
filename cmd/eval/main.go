package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orbit-maths/tutor-eval/internal/config"
	"github.com/orbit-maths/tutor-eval/internal/eval"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"github.com/orbit-maths/tutor-eval/internal/mongox"
	"github.com/orbit-maths/tutor-eval/internal/tutor"
)

func main() {
	cfg := config.Load()

	var (
		catalogPath = flag.String("catalog", "", "Path to a test catalog JSON file (optional, uses the built-in catalog if not provided)")
		saveCatalog = flag.String("save-catalog", "", "Save the built-in catalog to file and exit")
		category    = flag.String("category", "", "Only run test cases in this category")
		testNames   = flag.String("tests", "", "Comma-separated test case names to run")
		limitTests  = flag.Int("limit", 0, "Limit number of tests to run (0 = run all)")
		judgeModel  = flag.String("judge-model", cfg.JudgeModel, "Model used as the judge")
		delay       = flag.Duration("delay", cfg.TestDelay, "Minimum spacing between test cases")
		outputPath  = flag.String("output", "", "Path to save the run report (optional, auto-generated if not provided)")
		useStore    = flag.Bool("store", false, "Persist results to MongoDB (MONGO_URI)")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run Socratic behaviour evaluations against the tutor.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run the whole built-in catalog:\n")
		fmt.Fprintf(os.Stderr, "  %s\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Run one category and keep the results:\n")
		fmt.Fprintf(os.Stderr, "  %s -category socratic_rule1 -store\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Quick iteration on the first 3 cases without pacing:\n")
		fmt.Fprintf(os.Stderr, "  %s -limit 3 -delay 0\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Save the built-in catalog to file:\n")
		fmt.Fprintf(os.Stderr, "  %s -save-catalog catalog.json\n\n", os.Args[0])
	}

	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx := context.Background()

	if *saveCatalog != "" {
		if err := eval.SaveCatalog(*saveCatalog, eval.DefaultCatalog().Cases()); err != nil {
			slog.Error("Failed to save catalog", "error", err)
			os.Exit(1)
		}
		slog.Info("Catalog saved successfully", "path", *saveCatalog)
		return
	}

	if err := cfg.RequireJudgeCredentials(); err != nil {
		slog.Error("Judge is not configured", "error", err)
		os.Exit(1)
	}

	catalog := eval.DefaultCatalog()
	if *catalogPath != "" {
		slog.Info("Loading catalog from file", "path", *catalogPath)
		loaded, err := eval.LoadCatalog(*catalogPath)
		if err != nil {
			slog.Error("Failed to load catalog", "error", err)
			os.Exit(1)
		}
		catalog = loaded
	}
	slog.Info("Loaded catalog", "version", catalog.Version(), "count", catalog.Len())

	var store eval.Store = eval.DiscardStore{}
	if *useStore {
		db, err := mongox.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			slog.Error("Failed to connect to mongo", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()

		repo := model.New(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			slog.Warn("Failed to ensure indexes", "error", err)
		}
		store = repo
	}

	runner := eval.NewRunner(
		catalog,
		eval.NewScenarioRunner(tutor.New(cfg.TutorURL, cfg.TutorAPIKey, cfg.TutorTimeout)),
		eval.NewJudge(eval.NewOpenAICompleter(cfg.JudgeAPIKey, cfg.JudgeBaseURL)),
		store,
		eval.WithPacer(eval.NewIntervalPacer(*delay)),
	)

	sel := eval.Selection{
		Category: *category,
		Names:    splitNames(*testNames),
		Limit:    *limitTests,
	}

	summary, err := runner.Execute(ctx, sel, *judgeModel)
	if err != nil {
		slog.Error("Evaluation run failed", "error", err)
		os.Exit(1)
	}

	outputFile := *outputPath
	if outputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputFile = filepath.Join("eval_results", fmt.Sprintf("socratic_%s.json", timestamp))
	}

	slog.Info("Saving evaluation report", "path", outputFile)
	if err := eval.SaveReport(outputFile, *summary); err != nil {
		slog.Error("Failed to save report", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	eval.PrintSummary(os.Stdout, summary)
	fmt.Println()
	fmt.Printf("Full report saved to: %s\n", outputFile)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
