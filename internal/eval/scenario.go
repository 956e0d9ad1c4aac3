package eval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orbit-maths/tutor-eval/internal/tutor"
)

// Tutor is the conversational system under test.
type Tutor interface {
	Chat(ctx context.Context, req tutor.Request) (tutor.Response, error)
}

// evaluationContext is the fixed student profile used for every scenario.
var evaluationContext = tutor.UserContext{
	Level:       "GCSE",
	Board:       "AQA",
	StudentName: "Test Student",
}

// Scenario is the tutor's answer to one scripted conversation.
type Scenario struct {
	Reply string
	Raw   json.RawMessage
}

// ScenarioRunner turns a test case into a two-turn conversation and asks the
// tutor for its next reply.
type ScenarioRunner struct {
	tutor Tutor
}

func NewScenarioRunner(t Tutor) *ScenarioRunner {
	return &ScenarioRunner{tutor: t}
}

// Run sends the scenario for tc to the tutor in coach mode.
func (s *ScenarioRunner) Run(ctx context.Context, tc TestCase) (Scenario, error) {
	resp, err := s.tutor.Chat(ctx, ScenarioRequest(tc))
	if err != nil {
		return Scenario{}, fmt.Errorf("tutor chat failed: %w", err)
	}

	return Scenario{
		Reply: resp.Text(),
		Raw:   resp.Raw,
	}, nil
}

// ScenarioRequest builds the tutor request for tc: the tutor poses the setup and
// the student answers with the scripted input.
func ScenarioRequest(tc TestCase) tutor.Request {
	return tutor.Request{
		Messages: []tutor.Message{
			{Role: tutor.RoleTutor, Content: "Let's work on this question: " + tc.Setup},
			{Role: tutor.RoleStudent, Content: tc.StudentInput},
		},
		QuestionContext: tc.Setup,
		UserContext:     evaluationContext,
		TutorMode:       tutor.ModeCoach,
	}
}
