package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/hal-voice/domain"
)

func nextEvent(t *testing.T, p *ExecPlayer) domain.PlaybackEvent {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no playback event")
		return domain.PlaybackEvent{}
	}
}

func TestExecPlayer_PlaysToCompletion(t *testing.T) {
	p, err := NewExecPlayer("cat")
	if err != nil {
		t.Fatalf("new player: %v", err)
	}

	artifact := domain.AudioArtifact{ID: "a-1", Data: []byte("mp3")}
	if err := p.Play(context.Background(), artifact, domain.AutoPlayback); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if ev := nextEvent(t, p); ev.Kind != domain.PlaybackStarted || ev.ArtifactID != "a-1" {
		t.Fatalf("expected started, got %+v", ev)
	}
	if ev := nextEvent(t, p); ev.Kind != domain.PlaybackEnded || ev.Mode != domain.AutoPlayback {
		t.Fatalf("expected ended, got %+v", ev)
	}
}

func TestExecPlayer_FailingCommand(t *testing.T) {
	p, err := NewExecPlayer("false")
	if err != nil {
		t.Fatalf("new player: %v", err)
	}

	if err := p.Play(context.Background(), domain.AudioArtifact{ID: "a-1"}, domain.ManualPlayback); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	nextEvent(t, p)
	if ev := nextEvent(t, p); ev.Kind != domain.PlaybackFailed || ev.Detail == "" {
		t.Fatalf("expected failure, got %+v", ev)
	}
}

func TestExecPlayer_MissingCommandIsBlocked(t *testing.T) {
	p, err := NewExecPlayer("definitely-not-a-player-binary -q -")
	if err != nil {
		t.Fatalf("new player: %v", err)
	}

	err = p.Play(context.Background(), domain.AudioArtifact{ID: "a-1"}, domain.AutoPlayback)
	if !errors.Is(err, domain.ErrPlaybackBlocked) {
		t.Fatalf("expected ErrPlaybackBlocked, got %v", err)
	}
}

func TestNewExecPlayer_RejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecPlayer("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}
