package domain

import (
	"context"
	"time"
)

// AudioArtifact is one synthesized reply, addressable by a generated local URL
// for as long as the audio store keeps it.
type AudioArtifact struct {
	ID          string    `json:"id"`
	TurnID      string    `json:"turn_id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type AudioStore interface {
	Put(ctx context.Context, turnID string, data []byte, contentType string) (AudioArtifact, error)
	Get(ctx context.Context, id string) (AudioArtifact, error)
}

type PlaybackMode string

const (
	AutoPlayback   PlaybackMode = "auto"
	ManualPlayback PlaybackMode = "manual"
)

type PlaybackEventKind string

const (
	PlaybackStarted PlaybackEventKind = "started"
	PlaybackBlocked PlaybackEventKind = "blocked"
	PlaybackEnded   PlaybackEventKind = "ended"
	PlaybackFailed  PlaybackEventKind = "failed"
)

// PlaybackEvent is reported by a Player after it was asked to play an artifact.
type PlaybackEvent struct {
	ArtifactID string            `json:"artifact_id"`
	Kind       PlaybackEventKind `json:"event"`
	Mode       PlaybackMode      `json:"mode"`
	Detail     string            `json:"detail,omitempty"`
}

// Player starts audio playback and reports its outcome asynchronously on Events.
// Play only fails when the request could not be handed to the output at all.
type Player interface {
	Play(ctx context.Context, artifact AudioArtifact, mode PlaybackMode) error
	Events() <-chan PlaybackEvent
}

type ControlState string

const (
	ControlReady   ControlState = "ready"
	ControlPlaying ControlState = "playing"
	ControlExpired ControlState = "expired"
)

const (
	PlayResponseLabel = "🔊 Play Response"
	PlayingLabel      = "🔊 Playing..."
)

// ManualControl is the play button offered when automatic playback was blocked.
type ManualControl struct {
	ArtifactID string       `json:"artifact_id"`
	URL        string       `json:"url"`
	State      ControlState `json:"state"`
	Label      string       `json:"label"`
	Enabled    bool         `json:"enabled"`
}

func NewManualControl(artifact AudioArtifact) ManualControl {
	return ManualControl{
		ArtifactID: artifact.ID,
		URL:        artifact.URL,
		State:      ControlReady,
		Label:      PlayResponseLabel,
		Enabled:    true,
	}
}

func (c ManualControl) Playing() ManualControl {
	c.State = ControlPlaying
	c.Label = PlayingLabel
	c.Enabled = false
	return c
}

func (c ManualControl) Finished() ManualControl {
	c.State = ControlReady
	c.Label = PlayResponseLabel
	c.Enabled = true
	return c
}

// Expired disables the control for good; its audio is no longer available.
func (c ManualControl) Expired() ManualControl {
	c.State = ControlExpired
	c.Label = PlayResponseLabel
	c.Enabled = false
	return c
}
