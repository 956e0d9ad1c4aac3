package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/orbit-maths/tutor-eval/internal/tutor"

// Roles used on the wire. The tutor speaks as the assistant, the student as the user.
const (
	RoleTutor   = "assistant"
	RoleStudent = "user"
)

// ModeCoach is the guided, Socratic interaction mode.
const ModeCoach = "coach"

// maxErrorBody bounds how much of a failed response body ends up in error messages.
const maxErrorBody = 512

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type UserContext struct {
	Level       string `json:"level"`
	Board       string `json:"board"`
	StudentName string `json:"studentName"`
}

// Request is the body posted to the tutor chat endpoint.
type Request struct {
	Messages        []Message   `json:"messages"`
	QuestionContext string      `json:"questionContext"`
	UserContext     UserContext `json:"userContext"`
	TutorMode       string      `json:"tutor_mode"`
}

// Response is the subset of the tutor reply the harness cares about. The tutor
// may answer with a list of sequential fragments or a single message.
type Response struct {
	ReplyMessages []string        `json:"reply_messages,omitempty"`
	Message       string          `json:"message,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Text returns the reply as displayed to the student: fragments joined by a
// paragraph break, or the single message.
func (r Response) Text() string {
	if len(r.ReplyMessages) > 0 {
		return strings.Join(r.ReplyMessages, "\n\n")
	}
	return r.Message
}

// Client calls the tutor capability over HTTP. It never retries.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func New(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Chat posts req to the tutor and decodes its reply.
func (c *Client) Chat(ctx context.Context, req Request) (Response, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Tutor.Chat",
		trace.WithAttributes(
			attribute.Int("tutor.messages", len(req.Messages)),
			attribute.String("tutor.mode", req.TutorMode),
		),
	)
	defer span.End()

	resp, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tutor call failed")
		return Response{}, err
	}

	span.SetAttributes(attribute.Int("tutor.reply_fragments", len(resp.ReplyMessages)))
	span.SetStatus(codes.Ok, "tutor replied")
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	var zero Response
	if c.url == "" {
		return zero, errors.New("missing TUTOR_URL")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return zero, fmt.Errorf("tutor returned status %d: %s", resp.StatusCode, excerpt)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	out.Raw = json.RawMessage(body)

	return out, nil
}
