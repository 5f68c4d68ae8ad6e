package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

var _ domain.Player = (*Player)(nil)

// Player plays audio on the connected front-ends: it sends them a play command and
// relays the playback reports they send back.
type Player struct {
	hub    *Hub
	events chan domain.PlaybackEvent
}

func NewPlayer(hub *Hub) *Player {
	return &Player{
		hub:    hub,
		events: make(chan domain.PlaybackEvent, 32),
	}
}

// Play fails with domain.ErrPlaybackBlocked when nobody is connected to hear it.
func (p *Player) Play(ctx context.Context, artifact domain.AudioArtifact, mode domain.PlaybackMode) error {
	if p.hub.ClientCount() == 0 {
		return domain.ErrPlaybackBlocked
	}

	payload, err := sonic.Marshal(domain.UIEvent{
		Type:      domain.PlayEvent,
		TurnID:    artifact.TurnID,
		Timestamp: time.Now(),
		Play: &domain.PlayCommand{
			ArtifactID: artifact.ID,
			URL:        artifact.URL,
			Mode:       mode,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding play command: %w", err)
	}

	p.hub.Broadcast(payload)
	log.WithCtx(ctx).Debug("Play command sent",
		zap.String("artifact_id", artifact.ID),
		zap.String("mode", string(mode)))
	return nil
}

func (p *Player) Events() <-chan domain.PlaybackEvent {
	return p.events
}

// Report queues a playback report from a front-end. Reports are dropped rather
// than stalling a client's read loop.
func (p *Player) Report(ctx context.Context, ev domain.PlaybackEvent) {
	select {
	case p.events <- ev:
	default:
		log.WithCtx(ctx).Warn("Playback report dropped", zap.String("artifact_id", ev.ArtifactID))
	}
}
