package domain

import "context"

// Configuration is the credential triple needed before any turn can run.
// The values are opaque capability tokens and are never validated.
type Configuration struct {
	ChatAPIKey   string `json:"chat_api_key"`
	SpeechAPIKey string `json:"speech_api_key"`
	VoiceID      string `json:"voice_id"`
}

// Complete reports whether all three values are present.
func (c Configuration) Complete() bool {
	return c.ChatAPIKey != "" && c.SpeechAPIKey != "" && c.VoiceID != ""
}

// ConfigStore persists the configuration in a local key-value store.
// A store that holds nothing yet loads as an empty Configuration.
type ConfigStore interface {
	Load(ctx context.Context) (Configuration, error)
	Save(ctx context.Context, cfg Configuration) error
}

// Storage keys, shared with the browser front-end.
const (
	ChatAPIKeyName   = "openaiApiKey"
	SpeechAPIKeyName = "elevenLabsApiKey"
	VoiceIDName      = "voiceId"
)
