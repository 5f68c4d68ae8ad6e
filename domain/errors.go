package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBusy             = errors.New("a turn is already in progress")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrConfigIncomplete = errors.New("configuration is incomplete")
	ErrArtifactNotFound = errors.New("audio artifact not found")
	ErrPlaybackBlocked  = errors.New("automatic playback was blocked")
	ErrTurnCancelled    = errors.New("turn was cancelled")
)

// ChatAPIError is returned when the chat endpoint answers with a non-success status.
type ChatAPIError struct {
	Provider string
	Status   int
}

func (e *ChatAPIError) Error() string {
	return fmt.Sprintf("%s API error: %d", e.Provider, e.Status)
}

// SpeechAPIError carries the status and raw body of the last failed synthesis attempt.
type SpeechAPIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *SpeechAPIError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.Status, e.Body)
}

const defaultSpeechProvider = "ElevenLabs"

// SpeechFailureMessage turns a synthesis failure into the status line shown to the user.
// Only the structured status is inspected; errors without one get the generic message.
func SpeechFailureMessage(err error) string {
	provider := defaultSpeechProvider
	status := 0

	var apiErr *SpeechAPIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
		if apiErr.Provider != "" {
			provider = apiErr.Provider
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return provider + " API key is invalid. Please check your API key."
	case http.StatusNotFound:
		return "Voice ID not found. Please check your " + provider + " Voice ID."
	case http.StatusTooManyRequests:
		return provider + " API rate limit exceeded. Please try again later."
	case http.StatusBadRequest:
		return "Invalid request to " + provider + ". Please check your configuration."
	default:
		return "Speech conversion failed, but text response is available."
	}
}
