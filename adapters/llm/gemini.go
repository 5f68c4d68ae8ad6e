package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const DefaultGeminiModel = "gemini-2.0-flash-001"

var _ domain.Llm = (*GeminiClient)(nil)

// GeminiClient answers turns with the Gemini API, using the persona as the
// system instruction and the same generation policy as the OpenAI client.
type GeminiClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

type GeminiConfig struct {
	Model      string
	BaseURL    string // optional; defaults to the public Gemini endpoint
	HTTPClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	return &GeminiClient{
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
	}
}

func (g *GeminiClient) GetReply(ctx context.Context, userMessage, apiKey string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL, APIVersion: "v1beta"},
	})
	if err != nil {
		return "", fmt.Errorf("creating genai client: %w", err)
	}

	temperature := domain.ChatTemperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: domain.PersonaPrompt}},
		},
		Temperature:     &temperature,
		MaxOutputTokens: domain.ChatMaxTokens,
	}

	log.WithCtx(ctx).Debug("Sending message to Gemini", zap.String("model", g.model))
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(userMessage), config)
	if err != nil {
		if status, ok := geminiStatus(err); ok {
			return "", &domain.ChatAPIError{Provider: "Gemini", Status: status}
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return apiErrPtr.Code, true
	}
	return 0, false
}
