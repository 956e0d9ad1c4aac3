package eval

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/orbit-maths/tutor-eval/internal/eval/model"
)

// RunSummary is what a caller gets back from a run.
type RunSummary struct {
	RunID          string          `json:"runId"`
	CatalogVersion string          `json:"catalogVersion,omitempty"`
	JudgeModel     string          `json:"judgeModel,omitempty"`
	Total          int             `json:"total"`
	Passed         int             `json:"passed"`
	Failed         int             `json:"failed"`
	Errored        int             `json:"errored"`
	PassRate       string          `json:"passRate"`
	Results        []*model.Result `json:"results"`
}

// PassRate formats round(100*passed/total) as a percentage.
func PassRate(passed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(100*float64(passed)/float64(total))))
}

// Store persists evaluation results.
type Store interface {
	AppendResult(ctx context.Context, res *model.Result) error
}

// DiscardStore drops every result. It is used when no database is configured.
type DiscardStore struct{}

func (DiscardStore) AppendResult(ctx context.Context, res *model.Result) error {
	slog.DebugContext(ctx, "Discarding result", "run_id", res.RunID, "test", res.TestName)
	return nil
}
