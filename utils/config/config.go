package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	OpenAIProvider     = "openai"
	GeminiProvider     = "gemini"
	ElevenLabsProvider = "elevenlabs"
	GoogleProvider     = "google"
)

// Settings is the process configuration read from the environment once gotenv has
// loaded any .env file. The credential triple is not part of it; see domain.Configuration.
type Settings struct {
	Addr  string
	Debug bool

	ChatProvider  string
	ChatModel     string
	OpenAIBaseURL string
	ChatTimeout   time.Duration

	SpeechProvider    string
	ElevenLabsBaseURL string
	SpeechTimeout     time.Duration

	ConfigStorePath string
	AudioCacheSize  int

	JWTSecret    string
	ClientKey    string
	ClientSecret string

	VoiceInput         bool
	VoiceInputLanguage string
}

// FromEnv reads Settings, applying defaults for anything unset.
func FromEnv() (Settings, error) {
	s := Settings{
		Addr:               getenv("HAL_ADDR", ":8080"),
		Debug:              os.Getenv("DEBUG") == "true",
		ChatProvider:       getenv("CHAT_PROVIDER", OpenAIProvider),
		ChatModel:          os.Getenv("CHAT_MODEL"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		SpeechProvider:     getenv("SPEECH_PROVIDER", ElevenLabsProvider),
		ElevenLabsBaseURL:  getenv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ConfigStorePath:    getenv("CONFIG_STORE_PATH", ".hal.env"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ClientKey:          os.Getenv("CLIENT_KEY"),
		ClientSecret:       os.Getenv("CLIENT_SECRET"),
		VoiceInput:         os.Getenv("VOICE_INPUT") == "true",
		VoiceInputLanguage: getenv("VOICE_INPUT_LANGUAGE", "en-US"),
	}

	var err error
	if s.ChatTimeout, err = durationEnv("CHAT_TIMEOUT", 30*time.Second); err != nil {
		return s, err
	}
	if s.SpeechTimeout, err = durationEnv("SPEECH_TIMEOUT", 60*time.Second); err != nil {
		return s, err
	}
	if s.AudioCacheSize, err = intEnv("AUDIO_CACHE_SIZE", 8); err != nil {
		return s, err
	}

	switch s.ChatProvider {
	case OpenAIProvider, GeminiProvider:
	default:
		return s, fmt.Errorf("unknown CHAT_PROVIDER %q", s.ChatProvider)
	}
	switch s.SpeechProvider {
	case ElevenLabsProvider, GoogleProvider:
	default:
		return s, fmt.Errorf("unknown SPEECH_PROVIDER %q", s.SpeechProvider)
	}
	if s.JWTSecret == "" {
		return s, fmt.Errorf("JWT_SECRET is required")
	}
	if s.ClientKey == "" || s.ClientSecret == "" {
		return s, fmt.Errorf("CLIENT_KEY and CLIENT_SECRET are required")
	}
	if s.AudioCacheSize < 1 {
		return s, fmt.Errorf("AUDIO_CACHE_SIZE must be positive, got %d", s.AudioCacheSize)
	}

	return s, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
