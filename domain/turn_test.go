package domain

import "testing"

func TestTurnState_LinearPath(t *testing.T) {
	path := []TurnState{TurnIdle, TurnSubmitting, TurnAwaitingChat, TurnAwaitingSpeech, TurnPlaying, TurnIdle}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransitionTo(path[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestTurnState_RejectsSkipsAndIdleSubmit(t *testing.T) {
	if TurnIdle.CanTransitionTo(TurnAwaitingChat) {
		t.Fatalf("idle must not jump to awaiting_chat")
	}
	if TurnSubmitting.CanTransitionTo(TurnSubmitting) {
		t.Fatalf("submitting must not re-enter itself")
	}
	if TurnIdle.CanTransitionTo(TurnIdle) {
		t.Fatalf("idle -> idle is not a transition")
	}
	if TurnPlaying.CanTransitionTo(TurnSubmitting) {
		t.Fatalf("playing must return to idle before a new submission")
	}
}

func TestTurnState_Processing(t *testing.T) {
	for _, s := range []TurnState{TurnSubmitting, TurnAwaitingChat, TurnAwaitingSpeech} {
		if !s.Processing() {
			t.Fatalf("%s should be processing", s)
		}
	}
	for _, s := range []TurnState{TurnIdle, TurnPlaying} {
		if s.Processing() {
			t.Fatalf("%s should not be processing", s)
		}
	}
}

func TestManualControl_Transitions(t *testing.T) {
	c := NewManualControl(AudioArtifact{ID: "a1", URL: "/api/v1/audio/a1"})
	if c.State != ControlReady || !c.Enabled || c.Label != PlayResponseLabel {
		t.Fatalf("unexpected initial control %+v", c)
	}
	c = c.Playing()
	if c.State != ControlPlaying || c.Enabled || c.Label != PlayingLabel {
		t.Fatalf("unexpected playing control %+v", c)
	}
	c = c.Finished()
	if c.State != ControlReady || !c.Enabled || c.Label != PlayResponseLabel {
		t.Fatalf("unexpected finished control %+v", c)
	}
}
