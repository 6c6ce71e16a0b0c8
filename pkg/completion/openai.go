package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultModel is the model every reply is generated with unless configured
// otherwise.
const DefaultModel = openai.GPT4oMini

// OpenAIConfig configures an OpenAI completer.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint (e.g. "http://localhost:8080/v1").
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Timeout bounds a single call. Zero means no timeout.
	Timeout time.Duration
}

// OpenAI is a Completer backed by the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAI creates an OpenAI completer. The client is safe for concurrent
// use and is meant to be shared by all requests.
func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Model is the model identifier requests are sent with.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete implements Completer. The instructions travel as the system
// message and input as the single user message.
func (o *OpenAI) Complete(ctx context.Context, instructions, input string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	}

	o.logger.Debug("sending completion request",
		zap.String("model", o.model),
		zap.Int("input_chars", len(input)),
	)

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	text := outputText(resp)
	o.logger.Debug("received completion",
		zap.String("id", resp.ID),
		zap.Int("choices", len(resp.Choices)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return text, nil
}

// outputText concatenates the text of every choice.
func outputText(resp openai.ChatCompletionResponse) string {
	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(choice.Message.Content)
	}
	return sb.String()
}
