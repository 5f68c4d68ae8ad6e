package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/satriahrh/hal-voice/domain"
)

// apiClient talks to the assistant's HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type messageResponse struct {
	TurnID string `json:"turn_id"`
	Status string `json:"status"`
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Turns include both remote calls, so this is generous.
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) authenticate(ctx context.Context, key, secret, deviceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/token", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", key)
	req.Header.Set("X-API-Secret", secret)
	req.Header.Set("X-Device-ID", deviceID)

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.send(req, &resp); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	c.token = resp.Token
	return nil
}

// websocketURL is the /ws endpoint with the token attached.
func (c *apiClient) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {c.token}}.Encode()
	return u.String(), nil
}

func (c *apiClient) submit(ctx context.Context, text string) (messageResponse, error) {
	var resp messageResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/messages", map[string]string{"text": text}, &resp)
	return resp, err
}

func (c *apiClient) cancel(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/turn/cancel", nil, nil)
}

func (c *apiClient) play(ctx context.Context, artifactID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/audio/"+url.PathEscape(artifactID)+"/play", nil, nil)
}

func (c *apiClient) configure(ctx context.Context, chatKey, speechKey, voiceID string) error {
	body := map[string]string{
		"openai_api_key":     chatKey,
		"elevenlabs_api_key": speechKey,
		"voice_id":           voiceID,
	}
	return c.do(ctx, http.MethodPut, "/api/v1/config", body, nil)
}

// download fetches the audio behind a play command.
func (c *apiClient) download(ctx context.Context, cmd domain.PlayCommand) (domain.AudioArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cmd.URL, nil)
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AudioArtifact{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return domain.AudioArtifact{}, &apiError{Status: resp.StatusCode, Message: string(data)}
	}

	return domain.AudioArtifact{
		ID:          cmd.ArtifactID,
		URL:         cmd.URL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.send(req, out)
}

func (c *apiClient) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
		}
		if sonic.Unmarshal(data, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		return &apiError{Status: resp.StatusCode, Message: e.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return sonic.Unmarshal(data, out)
}
