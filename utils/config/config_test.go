package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CLIENT_KEY", "key")
	t.Setenv("CLIENT_SECRET", "pass")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Addr != ":8080" || s.ChatProvider != OpenAIProvider || s.SpeechProvider != ElevenLabsProvider {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.ChatTimeout != 30*time.Second || s.SpeechTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: %v %v", s.ChatTimeout, s.SpeechTimeout)
	}
	if s.AudioCacheSize != 8 {
		t.Fatalf("unexpected cache size %d", s.AudioCacheSize)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAT_PROVIDER", "gemini")
	t.Setenv("SPEECH_PROVIDER", "google")
	t.Setenv("CHAT_TIMEOUT", "5s")
	t.Setenv("AUDIO_CACHE_SIZE", "2")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ChatProvider != GeminiProvider || s.SpeechProvider != GoogleProvider {
		t.Fatalf("providers not applied: %+v", s)
	}
	if s.ChatTimeout != 5*time.Second || s.AudioCacheSize != 2 {
		t.Fatalf("overrides not applied: %+v", s)
	}
}

func TestFromEnv_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"bad provider": {"CHAT_PROVIDER", "claude"},
		"bad timeout":  {"SPEECH_TIMEOUT", "soon"},
		"bad cache":    {"AUDIO_CACHE_SIZE", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestFromEnv_RequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CLIENT_KEY", "key")
	t.Setenv("CLIENT_SECRET", "pass")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected missing JWT_SECRET to fail")
	}
}
