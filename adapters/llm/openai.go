package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

var _ domain.Llm = (*OpenAIClient)(nil)

// OpenAIClient answers turns through the chat completions endpoint. The API key
// comes with every call, so no client is kept between turns.
type OpenAIClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

type OpenAIConfig struct {
	Model      string
	BaseURL    string // optional; for proxies or compatible servers
	HTTPClient *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &OpenAIClient{
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
	}
}

func (o *OpenAIClient) GetReply(ctx context.Context, userMessage, apiKey string) (string, error) {
	config := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}
	config.HTTPClient = o.httpClient
	client := openai.NewClientWithConfig(config)

	messages := domain.PersonaMessages(userMessage)
	in := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		in = append(in, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	log.WithCtx(ctx).Debug("Sending message to OpenAI", zap.String("model", o.model))
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    in,
		MaxTokens:   domain.ChatMaxTokens,
		Temperature: domain.ChatTemperature,
	})
	if err != nil {
		if status, ok := openAIStatus(err); ok {
			return "", &domain.ChatAPIError{Provider: "OpenAI", Status: status}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
