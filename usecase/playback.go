package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	AutoplayBlockedStatus = "Auto-play blocked by browser. Audio is ready to play."
	PlaybackFailedStatus  = "Audio playback failed."
)

// PlaybackController starts automatic playback of each reply and, when the output
// refuses to autoplay, keeps a manual play control for it.
type PlaybackController struct {
	player   domain.Player
	audio    domain.AudioStore
	notifier *Notifier

	mu       sync.Mutex
	controls map[string]domain.ManualControl
	turns    map[string]string // artifact id -> turn id
}

func NewPlaybackController(player domain.Player, audio domain.AudioStore, notifier *Notifier) *PlaybackController {
	return &PlaybackController{
		player:   player,
		audio:    audio,
		notifier: notifier,
		controls: make(map[string]domain.ManualControl),
		turns:    make(map[string]string),
	}
}

// Play asks the player to start artifact automatically. The outcome arrives later
// through Run; only a refusal to even accept the request is handled here.
func (p *PlaybackController) Play(ctx context.Context, artifact domain.AudioArtifact) {
	p.mu.Lock()
	p.pruneLocked(ctx)
	p.turns[artifact.ID] = artifact.TurnID
	p.mu.Unlock()

	err := p.player.Play(ctx, artifact, domain.AutoPlayback)
	if err == nil {
		return
	}

	kind := domain.PlaybackFailed
	if errors.Is(err, domain.ErrPlaybackBlocked) {
		kind = domain.PlaybackBlocked
	}
	p.Handle(ctx, domain.PlaybackEvent{
		ArtifactID: artifact.ID,
		Kind:       kind,
		Mode:       domain.AutoPlayback,
		Detail:     err.Error(),
	})
}

// PlayManually presses the play control of artifactID. A control whose audio has
// been evicted is withdrawn from the UI and ErrArtifactNotFound is returned.
func (p *PlaybackController) PlayManually(ctx context.Context, artifactID string) error {
	p.mu.Lock()
	control, ok := p.controls[artifactID]
	turnID := p.turns[artifactID]
	p.mu.Unlock()
	if !ok {
		return domain.ErrArtifactNotFound
	}
	if control.State == domain.ControlPlaying {
		return domain.ErrBusy
	}

	artifact, err := p.audio.Get(ctx, artifactID)
	if err != nil {
		p.mu.Lock()
		delete(p.controls, artifactID)
		delete(p.turns, artifactID)
		p.mu.Unlock()

		log.WithCtx(ctx).Warn("Manual control outlived its audio", zap.String("artifact_id", artifactID))
		p.notifier.Control(ctx, turnID, control.Expired())
		p.notifier.Status(ctx, turnID, PlaybackFailedStatus)
		return err
	}

	p.mu.Lock()
	control, ok = p.controls[artifactID]
	if !ok || control.State == domain.ControlPlaying {
		p.mu.Unlock()
		return domain.ErrBusy
	}
	control = control.Playing()
	p.controls[artifactID] = control
	p.mu.Unlock()

	p.notifier.Control(ctx, turnID, control)

	if err := p.player.Play(ctx, artifact, domain.ManualPlayback); err != nil {
		p.Handle(ctx, domain.PlaybackEvent{
			ArtifactID: artifactID,
			Kind:       domain.PlaybackFailed,
			Mode:       domain.ManualPlayback,
			Detail:     err.Error(),
		})
	}
	return nil
}

// Control returns the manual control offered for artifactID, if any.
func (p *PlaybackController) Control(artifactID string) (domain.ManualControl, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.controls[artifactID]
	return c, ok
}

// ControlEvents returns one control event per manual control whose audio is still
// available, oldest artifact id first.
func (p *PlaybackController) ControlEvents(ctx context.Context) []domain.UIEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneLocked(ctx)
	ids := make([]string, 0, len(p.controls))
	for id := range p.controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	events := make([]domain.UIEvent, 0, len(ids))
	for _, id := range ids {
		control := p.controls[id]
		events = append(events, domain.UIEvent{
			Type:      domain.ControlEvent,
			TurnID:    p.turns[id],
			Timestamp: now,
			Control:   &control,
		})
	}
	return events
}

// Run consumes player events until ctx is done or the player closes its channel.
func (p *PlaybackController) Run(ctx context.Context) {
	events := p.player.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Handle applies a single playback report.
func (p *PlaybackController) Handle(ctx context.Context, ev domain.PlaybackEvent) {
	p.mu.Lock()
	turnID := p.turns[ev.ArtifactID]
	p.mu.Unlock()

	ctx = log.WithTurn(ctx, turnID)
	log.WithCtx(ctx).Debug("Playback event",
		zap.String("artifact_id", ev.ArtifactID),
		zap.String("event", string(ev.Kind)),
		zap.String("mode", string(ev.Mode)),
		zap.String("detail", ev.Detail))

	if ev.Mode == domain.ManualPlayback {
		p.handleManual(ctx, turnID, ev)
		return
	}

	switch ev.Kind {
	case domain.PlaybackEnded:
		p.notifier.Status(ctx, turnID, "")
	case domain.PlaybackFailed:
		p.notifier.Status(ctx, turnID, PlaybackFailedStatus)
	case domain.PlaybackBlocked:
		p.offerManualControl(ctx, turnID, ev.ArtifactID)
	}
}

func (p *PlaybackController) handleManual(ctx context.Context, turnID string, ev domain.PlaybackEvent) {
	if ev.Kind == domain.PlaybackStarted {
		return
	}

	p.mu.Lock()
	control, ok := p.controls[ev.ArtifactID]
	if ok {
		control = control.Finished()
		p.controls[ev.ArtifactID] = control
	}
	p.mu.Unlock()

	if ok {
		p.notifier.Control(ctx, turnID, control)
	}
	if ev.Kind != domain.PlaybackEnded {
		p.notifier.Status(ctx, turnID, PlaybackFailedStatus)
	}
}

func (p *PlaybackController) offerManualControl(ctx context.Context, turnID, artifactID string) {
	artifact, err := p.audio.Get(ctx, artifactID)
	if err != nil {
		log.WithCtx(ctx).Warn("Blocked artifact is gone", zap.String("artifact_id", artifactID))
		p.notifier.Status(ctx, turnID, PlaybackFailedStatus)
		return
	}

	control := domain.NewManualControl(artifact)

	p.mu.Lock()
	p.pruneLocked(ctx)
	p.controls[artifactID] = control
	p.mu.Unlock()

	p.notifier.Status(ctx, turnID, AutoplayBlockedStatus)
	p.notifier.Control(ctx, turnID, control)
}

// pruneLocked forgets controls whose audio has been evicted.
func (p *PlaybackController) pruneLocked(ctx context.Context) {
	for id := range p.controls {
		if _, err := p.audio.Get(ctx, id); err != nil {
			delete(p.controls, id)
			delete(p.turns, id)
		}
	}
	for id := range p.turns {
		if _, ok := p.controls[id]; ok {
			continue
		}
		if _, err := p.audio.Get(ctx, id); err != nil {
			delete(p.turns, id)
		}
	}
}
