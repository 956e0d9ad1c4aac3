package eval

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// judgeMaxTokens bounds the judge's answer; a verdict is a short JSON object.
	judgeMaxTokens = 500
	// reasoningMaxTokens also covers the hidden reasoning of o-series and gpt-5
	// models, which is billed against the completion budget.
	reasoningMaxTokens = 4000
)

// reasoningModelPrefixes name models that reject max_tokens and require
// max_completion_tokens instead.
var reasoningModelPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

func isReasoningModel(model string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
type OpenAICompleter struct {
	client openai.Client
}

// NewOpenAICompleter creates a completer. An empty baseURL uses the default API.
func NewOpenAICompleter(apiKey, baseURL string, opts ...option.RequestOption) *OpenAICompleter {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAICompleter{
		client: openai.NewClient(reqOpts...),
	}
}

// Complete sends prompt as a single user message and returns the first choice's text.
func (c *OpenAICompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if isReasoningModel(model) {
		params.MaxCompletionTokens = openai.Int(reasoningMaxTokens)
	} else {
		params.MaxTokens = openai.Int(judgeMaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from LLM judge")
	}

	return resp.Choices[0].Message.Content, nil
}
