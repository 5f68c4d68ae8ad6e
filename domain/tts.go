package domain

import "context"

// Synthesizer converts a reply into audio bytes.
type Synthesizer interface {
	// Synthesize returns encoded audio for text spoken with voiceID. When every
	// attempt fails the error is a *SpeechAPIError describing the last attempt.
	Synthesize(ctx context.Context, text, apiKey, voiceID string) ([]byte, error)
}

// Fixed voice settings applied to every synthesis attempt.
const (
	VoiceSpeed           = 0.83
	VoiceStability       = 0.99
	VoiceSimilarityBoost = 0.99
)
