package domain

import "context"

// Transcriber turns a recorded utterance into text that can be submitted as a turn.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
