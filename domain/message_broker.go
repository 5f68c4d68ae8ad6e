package domain

import (
	"context"
	"time"
)

// MessageBroker defines the interface for message broker operations
type MessageBroker interface {
	// Publish sends a message to a specific topic/channel with a routing key
	Publish(ctx context.Context, topic string, routingKey string, message []byte) error

	// Subscribe listens for messages on a specific topic/channel and routing key
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Message, error)

	// Close closes the message broker connection
	Close() error
}

// Message represents a message received from the broker
type Message struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

// UITopic carries UIEvents from the orchestrator to every connected front-end.
const UITopic = "assistant.ui"

type UIEventType string

const (
	StatusEvent        UIEventType = "status"
	InputEvent         UIEventType = "input"
	SetupRequiredEvent UIEventType = "setup_required"
	PlayEvent          UIEventType = "play"
	ControlEvent       UIEventType = "control"
)

// UIEvent is a state change the front-end renders. Exactly one payload field is set,
// matching Type; setup_required has none.
type UIEvent struct {
	Type      UIEventType    `json:"type"`
	TurnID    string         `json:"turn_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Status    *StatusLine    `json:"status,omitempty"`
	Input     *InputState    `json:"input,omitempty"`
	Play      *PlayCommand   `json:"play,omitempty"`
	Control   *ManualControl `json:"control,omitempty"`
}

// StatusLine is hidden whenever its text is blank.
type StatusLine struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

type InputState struct {
	Enabled   bool   `json:"enabled"`
	SendLabel string `json:"send_label"`
}

type PlayCommand struct {
	ArtifactID string       `json:"artifact_id"`
	URL        string       `json:"url"`
	Mode       PlaybackMode `json:"mode"`
}
