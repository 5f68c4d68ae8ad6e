package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/hal-voice/adapters/audio"
	"github.com/satriahrh/hal-voice/domain"
)

type fakeAssistant struct {
	mu        sync.Mutex
	cfg       domain.Configuration
	result    domain.TurnResult
	err       error
	submitted []string
	cancelled bool
}

func (f *fakeAssistant) Submit(ctx context.Context, message string) (domain.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, message)
	return f.result, f.err
}

func (f *fakeAssistant) Cancel(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *fakeAssistant) Configure(ctx context.Context, cfg domain.Configuration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	return nil
}

func (f *fakeAssistant) Configuration() domain.Configuration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeAssistant) Processing() bool { return false }

type fakePlayback struct {
	err    error
	played []string
}

func (f *fakePlayback) PlayManually(ctx context.Context, artifactID string) error {
	f.played = append(f.played, artifactID)
	return f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

var testConfig = Config{JWTSecret: "test-secret", ClientKey: "client", ClientSecret: "secret"}

type fixture struct {
	e         *echo.Echo
	assistant *fakeAssistant
	playback  *fakePlayback
	audio     *audio.MemoryStore
	token     string
}

func newFixture(t *testing.T, transcriber domain.Transcriber) *fixture {
	t.Helper()
	f := &fixture{
		e:         echo.New(),
		assistant: &fakeAssistant{},
		playback:  &fakePlayback{},
		audio:     audio.NewMemoryStore(4),
	}
	NewHandler(testConfig, f.assistant, f.playback, f.audio, transcriber).Register(f.e)
	f.token = f.issueToken(t)
	return f
}

func (f *fixture) issueToken(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	req.Header.Set("X-API-Key", testConfig.ClientKey)
	req.Header.Set("X-API-Secret", testConfig.ClientSecret)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token request failed: %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding token: %v", err)
	}
	return body["token"]
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateJWT_RejectsBadCredentials(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	req.Header.Set("X-API-Key", "client")
	req.Header.Set("X-API-Secret", "wrong")
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		auth string
		url  string
		want int
	}{
		{"missing", "", "/api/v1/config", http.StatusUnauthorized},
		{"not bearer", f.token, "/api/v1/config", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "/api/v1/config", http.StatusUnauthorized},
		{"header", "Bearer " + f.token, "/api/v1/config", http.StatusOK},
		{"query", "", "/api/v1/config?token=" + f.token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.auth != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.auth)
			}
			rec := httptest.NewRecorder()
			f.e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestConfig_PutThenGet(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPut, "/api/v1/config",
		`{"openai_api_key":" sk-1 ","elevenlabs_api_key":"el-1","voice_id":"v-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := f.assistant.Configuration(); got.ChatAPIKey != "sk-1" || got.VoiceID != "v-1" {
		t.Fatalf("unexpected saved configuration %+v", got)
	}

	rec = f.do(http.MethodGet, "/api/v1/config", "")
	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	if !resp.Complete || !resp.HasChatKey || !resp.HasSpeechKey || resp.VoiceID != "v-1" {
		t.Fatalf("unexpected config response %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "sk-1") {
		t.Fatal("config response leaked a key")
	}
}

func TestSubmitMessage_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
		want   int
	}{
		{"ok", nil, "", http.StatusOK},
		{"speech failure still completes", nil, "Invalid ElevenLabs API key.", http.StatusOK},
		{"empty", domain.ErrEmptyMessage, "", http.StatusBadRequest},
		{"busy", domain.ErrBusy, "", http.StatusConflict},
		{"cancelled", domain.ErrTurnCancelled, "", http.StatusConflict},
		{"setup", domain.ErrConfigIncomplete, "", http.StatusPreconditionFailed},
		{"chat failure", &domain.ChatAPIError{Provider: "OpenAI", Status: 401}, "Error: OpenAI API error: 401", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.assistant.result = domain.TurnResult{TurnID: "turn-1", Status: tt.status}
			f.assistant.err = tt.err

			rec := f.do(http.MethodPost, "/api/v1/messages", `{"text":"Hello"}`)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.status != "" && !strings.Contains(rec.Body.String(), tt.status) {
				t.Fatalf("expected body to carry %q, got %s", tt.status, rec.Body.String())
			}
			if len(f.assistant.submitted) != 1 || f.assistant.submitted[0] != "Hello" {
				t.Fatalf("unexpected submissions %v", f.assistant.submitted)
			}
		})
	}
}

func TestCancelTurn(t *testing.T) {
	f := newFixture(t, nil)
	f.assistant.cancelled = true

	rec := f.do(http.MethodPost, "/api/v1/turn/cancel", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cancelled":true`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetAudio(t *testing.T) {
	f := newFixture(t, nil)
	artifact, err := f.audio.Put(context.Background(), "turn-1", []byte("mp3-bytes"), "audio/mpeg")
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, artifact.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderContentType) != "audio/mpeg" || rec.Body.String() != "mp3-bytes" {
		t.Fatalf("unexpected audio response %q %q", rec.Header().Get(echo.HeaderContentType), rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audio/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown artifact, got %d", rec.Code)
	}
}

func TestPlayAudio(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"unknown", domain.ErrArtifactNotFound, http.StatusNotFound},
		{"already playing", domain.ErrBusy, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.playback.err = tt.err

			rec := f.do(http.MethodPost, "/api/v1/audio/a-1/play", "")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if len(f.playback.played) != 1 || f.playback.played[0] != "a-1" {
				t.Fatalf("unexpected plays %v", f.playback.played)
			}
		})
	}
}

func TestVoice(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := f.voice("pcm")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("transcript is submitted", func(t *testing.T) {
		f := newFixture(t, fakeTranscriber{text: "open the pod bay doors"})
		rec := f.voice("pcm")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(f.assistant.submitted) != 1 || f.assistant.submitted[0] != "open the pod bay doors" {
			t.Fatalf("unexpected submissions %v", f.assistant.submitted)
		}
	})

	t.Run("nothing recognized", func(t *testing.T) {
		f := newFixture(t, fakeTranscriber{})
		rec := f.voice("pcm")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if len(f.assistant.submitted) != 0 {
			t.Fatal("nothing should be submitted")
		}
	})

	t.Run("transcription failure", func(t *testing.T) {
		f := newFixture(t, fakeTranscriber{err: errors.New("quota")})
		rec := f.voice("pcm")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})
}

func (f *fixture) voice(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "audio/l16")
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}
