package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	PrimaryModel  = "eleven_multilingual_v2"
	FallbackModel = "eleven_monolingual_v1"

	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
)

var _ domain.Synthesizer = (*ElevenLabsTTS)(nil)

type ElevenLabsConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ElevenLabsTTS calls the REST text-to-speech endpoint, retrying once with the
// fallback model when the primary model is rejected.
type ElevenLabsTTS struct {
	baseURL    string
	httpClient *http.Client
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Speed           float64 `json:"speed"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func NewElevenLabsTTS(cfg ElevenLabsConfig) *ElevenLabsTTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &ElevenLabsTTS{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, apiKey, voiceID string) ([]byte, error) {
	audio, err := e.synthesize(ctx, PrimaryModel, text, apiKey, voiceID)
	if err == nil {
		return audio, nil
	}

	var apiErr *domain.SpeechAPIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}

	log.WithCtx(ctx).Debug("Primary speech model rejected, retrying with fallback",
		zap.String("model", PrimaryModel),
		zap.Int("status", apiErr.Status))

	return e.synthesize(ctx, FallbackModel, text, apiKey, voiceID)
}

func (e *ElevenLabsTTS) synthesize(ctx context.Context, modelID, text, apiKey, voiceID string) ([]byte, error) {
	body, err := sonic.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Speed:           domain.VoiceSpeed,
			Stability:       domain.VoiceStability,
			SimilarityBoost: domain.VoiceSimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding speech request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending speech request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.SpeechAPIError{
			Provider: "ElevenLabs",
			Status:   resp.StatusCode,
			Body:     string(payload),
		}
	}

	return payload, nil
}
