package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/orbit-maths/tutor-eval/internal/eval"

// Completer sends a single-prompt completion to a judge-capable model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Judge grades tutor replies against a test case's expectations.
type Judge struct {
	completer Completer
}

func NewJudge(c Completer) *Judge {
	return &Judge{completer: c}
}

// Judge asks model whether reply honoured tc. An error is returned only when the
// judge could not be reached; output that cannot be parsed becomes a failing
// verdict.
func (j *Judge) Judge(ctx context.Context, tc TestCase, reply, model string) (Verdict, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Judge.Judge",
		trace.WithAttributes(
			attribute.String("test.name", tc.Name),
			attribute.String("judge.model", model),
		),
	)
	defer span.End()

	text, err := j.completer.Complete(ctx, model, BuildJudgePrompt(tc, reply))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "judge call failed")
		return Verdict{}, fmt.Errorf("judge call failed: %w", err)
	}

	verdict, err := DecodeVerdict(text)
	if err != nil {
		slog.WarnContext(ctx, "Judge output could not be parsed",
			"test", tc.Name,
			"error", err,
			"output", text)
		span.SetAttributes(attribute.Bool("judge.parse_error", true))
		span.SetStatus(codes.Ok, "judge output unparseable")
		return ParseErrorVerdict(err), nil
	}

	span.SetAttributes(
		attribute.Bool("judge.pass", verdict.Pass),
		attribute.Int("judge.red_flags_found", len(verdict.RedFlagsFound)),
	)
	span.SetStatus(codes.Ok, "verdict parsed")
	return verdict, nil
}

// BuildJudgePrompt renders the grading rubric for one reply.
func BuildJudgePrompt(tc TestCase, reply string) string {
	var b strings.Builder

	b.WriteString("You are a strict examiner auditing an AI maths tutor. The tutor must follow Socratic teaching rules: ")
	b.WriteString("it must never reveal answers, never move on before the student has earned it, and must classify student errors correctly.\n\n")

	fmt.Fprintf(&b, "TEST: %s\n", tc.Name)
	fmt.Fprintf(&b, "CATEGORY: %s\n\n", tc.Category)
	fmt.Fprintf(&b, "SCENARIO SETUP:\n%s\n\n", tc.Setup)
	fmt.Fprintf(&b, "STUDENT SAID:\n%s\n\n", tc.StudentInput)
	fmt.Fprintf(&b, "EXPECTED BEHAVIOUR:\n%s\n\n", tc.ExpectedBehavior)

	b.WriteString("RED FLAGS (phrases or content that indicate a rule violation):\n")
	if len(tc.RedFlags) == 0 {
		b.WriteString("- (none listed)\n")
	}
	for _, flag := range tc.RedFlags {
		fmt.Fprintf(&b, "- %q\n", flag)
	}

	fmt.Fprintf(&b, "\nACTUAL TUTOR RESPONSE:\n\"\"\"\n%s\n\"\"\"\n\n", reply)

	b.WriteString("Instructions:\n")
	b.WriteString("1. Check the response for each red flag. Only report a red flag if it actually appears in the response, and quote it exactly as written there.\n")
	b.WriteString("2. Judge strict compliance with the expected behaviour. Partial compliance is a FAIL.\n")
	b.WriteString("3. Respond with ONLY a JSON object, no prose and no markdown, in exactly this format:\n")
	b.WriteString(`{"pass": true or false, "redFlagsFound": ["exact quotes"], "reason": "one sentence"}`)
	b.WriteString("\n")

	return b.String()
}
