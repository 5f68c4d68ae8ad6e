package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/satriahrh/hal-voice/domain"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func newChatServer(t *testing.T, calls *int32, status int, handle func(req chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if handle != nil {
			handle(req)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"denied","type":"invalid_request_error"}}`))
			return
		}
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Good afternoon, Dave."},"finish_reason":"stop"}]}`))
	}))
}

func TestOpenAIClient_GetReply_SendsPersonaAndPolicy(t *testing.T) {
	var calls int32
	srv := newChatServer(t, &calls, http.StatusOK, func(req chatRequest) {
		if req.Model != DefaultOpenAIModel {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
			return
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != domain.PersonaPrompt {
			t.Errorf("first message must be the persona prompt")
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "Hello" {
			t.Errorf("unexpected user message %+v", req.Messages[1])
		}
		if req.MaxTokens != 200 {
			t.Errorf("unexpected max_tokens %d", req.MaxTokens)
		}
		if req.Temperature < 0.699 || req.Temperature > 0.701 {
			t.Errorf("unexpected temperature %v", req.Temperature)
		}
	})
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1"})
	reply, err := client.GetReply(context.Background(), "Hello", "sk-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Good afternoon, Dave." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestOpenAIClient_GetReply_StatusErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := newChatServer(t, &calls, http.StatusUnauthorized, nil)
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1"})
	_, err := client.GetReply(context.Background(), "Hello", "sk-test")

	var apiErr *domain.ChatAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ChatAPIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || err.Error() != "OpenAI API error: 401" {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestOpenAIClient_GetReply_HonoursContext(t *testing.T) {
	var calls int32
	srv := newChatServer(t, &calls, http.StatusOK, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1"})
	_, err := client.GetReply(ctx, "Hello", "sk-test")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
