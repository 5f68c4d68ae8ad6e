package domain

// TurnState is the position of the orchestrator in a single request/response cycle.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnSubmitting
	TurnAwaitingChat
	TurnAwaitingSpeech
	TurnPlaying
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnSubmitting:
		return "submitting"
	case TurnAwaitingChat:
		return "awaiting_chat"
	case TurnAwaitingSpeech:
		return "awaiting_speech"
	case TurnPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Processing is true while a cycle holds the input disabled.
func (s TurnState) Processing() bool {
	return s == TurnSubmitting || s == TurnAwaitingChat || s == TurnAwaitingSpeech
}

// CanTransitionTo allows the linear path plus an abort back to idle from any busy state.
func (s TurnState) CanTransitionTo(next TurnState) bool {
	if next == TurnIdle {
		return s != TurnIdle
	}
	return next == s+1 && next <= TurnPlaying
}

// TurnResult describes how a completed cycle ended.
type TurnResult struct {
	TurnID   string         `json:"turn_id"`
	Status   string         `json:"status"`
	Artifact *AudioArtifact `json:"artifact,omitempty"`
}
