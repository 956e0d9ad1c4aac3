package model

import (
	"time"
)

// Outcome separates logical failures from execution errors. Both count as
// failed in the run tallies.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
)

// Result is the record of one test case execution. It carries a copy of the
// test case so a run can be audited without the catalog that produced it.
type Result struct {
	RunID            string   `bson:"run_id" json:"runId"`
	TestName         string   `bson:"test_name" json:"testName"`
	TestCategory     string   `bson:"test_category" json:"testCategory"`
	TestSetup        string   `bson:"test_setup" json:"testSetup"`
	StudentInput     string   `bson:"student_input" json:"studentInput"`
	ExpectedBehavior string   `bson:"expected_behavior" json:"expectedBehavior"`
	RedFlags         []string `bson:"red_flags" json:"redFlags"`

	OrbitResponse string   `bson:"orbit_response" json:"orbitResponse"`
	Passed        bool     `bson:"passed" json:"passed"`
	Outcome       Outcome  `bson:"outcome" json:"outcome"`
	RedFlagsFound []string `bson:"red_flags_found" json:"redFlagsFound"`
	FailureReason *string  `bson:"failure_reason" json:"failureReason"`

	JudgeModel      string   `bson:"judge_model,omitempty" json:"judgeModel,omitempty"`
	JudgeReason     string   `bson:"judge_reason,omitempty" json:"judgeReason,omitempty"`
	LexicalRedFlags []string `bson:"lexical_red_flags,omitempty" json:"lexicalRedFlags,omitempty"`
	DurationMs      int64    `bson:"duration_ms" json:"durationMs"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Run groups the results that share a run ID.
type Run struct {
	RunID     string    `bson:"_id" json:"runId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Total     int       `bson:"total" json:"total"`
	Passed    int       `bson:"passed" json:"passed"`
	Failed    int       `bson:"failed" json:"failed"`
	Errored   int       `bson:"errored" json:"errored"`
	Results   []*Result `bson:"-" json:"results,omitempty"`
}

// NewRun rebuilds a run from its results, which are expected in creation order.
// CreatedAt is the timestamp of the first result.
func NewRun(runID string, results []*Result) *Run {
	run := &Run{
		RunID:   runID,
		Total:   len(results),
		Results: results,
	}

	for i, r := range results {
		if i == 0 || r.CreatedAt.Before(run.CreatedAt) {
			run.CreatedAt = r.CreatedAt
		}
		if r.Passed {
			run.Passed++
			continue
		}
		run.Failed++
		if r.Outcome == OutcomeError {
			run.Errored++
		}
	}

	return run
}
