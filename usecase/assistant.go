package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	ThinkingStatus       = "HAL is thinking..."
	ConfigureFirstStatus = "Please configure your API keys first."
	audioContentType     = "audio/mpeg"
	defaultChatTimeout   = 30 * time.Second
	defaultSpeechTimeout = 60 * time.Second
	chatFailurePrefix    = "Error: "
)

type Options struct {
	ChatTimeout   time.Duration
	SpeechTimeout time.Duration
}

type Dependencies struct {
	Store       domain.ConfigStore
	Llm         domain.Llm
	Synthesizer domain.Synthesizer
	Audio       domain.AudioStore
	Playback    *PlaybackController
	Notifier    *Notifier
	Hasher      domain.Hasher
}

// Assistant runs one turn at a time: chat reply, speech synthesis, playback.
// Every turn is independent; no conversation history is kept.
type Assistant struct {
	deps Dependencies
	opts Options

	mu     sync.Mutex
	cfg    domain.Configuration
	state  domain.TurnState
	turnID string
	cancel context.CancelFunc
}

func NewAssistant(deps Dependencies, opts Options) *Assistant {
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = defaultChatTimeout
	}
	if opts.SpeechTimeout <= 0 {
		opts.SpeechTimeout = defaultSpeechTimeout
	}
	return &Assistant{deps: deps, opts: opts}
}

// LoadConfiguration reads the stored credentials. An incomplete configuration is
// not an error; it asks the front-end for the setup prompt instead.
func (a *Assistant) LoadConfiguration(ctx context.Context) (domain.Configuration, error) {
	cfg, err := a.deps.Store.Load(ctx)
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("loading configuration: %w", err)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	if !cfg.Complete() {
		log.WithCtx(ctx).Info("Configuration incomplete, setup required")
		a.deps.Notifier.SetupRequired(ctx)
	}
	return cfg, nil
}

// Configure persists new credentials and clears any pending status. Turns already
// in flight keep the configuration they started with.
func (a *Assistant) Configure(ctx context.Context, cfg domain.Configuration) error {
	if err := a.deps.Store.Save(ctx, cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	log.WithCtx(ctx).Info("Configuration saved",
		zap.String("chat_key", a.deps.Hasher.Fingerprint(cfg.ChatAPIKey)),
		zap.String("speech_key", a.deps.Hasher.Fingerprint(cfg.SpeechAPIKey)),
		zap.String("voice_id", cfg.VoiceID),
		zap.Bool("complete", cfg.Complete()))

	a.deps.Notifier.Status(ctx, "", "")
	return nil
}

func (a *Assistant) Configuration() domain.Configuration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *Assistant) State() domain.TurnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Processing reports whether a turn currently holds the input.
func (a *Assistant) Processing() bool {
	return a.State().Processing()
}

// Greeting returns the events a newly connected front-end needs to render the
// current state, including play controls still waiting for a press.
func (a *Assistant) Greeting(ctx context.Context) []domain.UIEvent {
	events := a.deps.Notifier.Snapshot()
	if a.deps.Playback != nil {
		events = append(events, a.deps.Playback.ControlEvents(ctx)...)
	}
	if !a.Configuration().Complete() {
		events = append(events, domain.UIEvent{Type: domain.SetupRequiredEvent, Timestamp: time.Now()})
	}

	log.WithCtx(ctx).Debug("Greeting front-end", zap.Int("events", len(events)))
	return events
}

// Cancel aborts the turn in flight. Its results are discarded and the assistant
// is immediately idle. It reports whether there was anything to cancel.
func (a *Assistant) Cancel(ctx context.Context) bool {
	a.mu.Lock()
	turnID := a.turnID
	a.mu.Unlock()

	if turnID == "" {
		return false
	}
	return a.abort(ctx, turnID)
}

// Submit runs one complete turn for message. It returns ErrBusy while another turn
// is running, ErrEmptyMessage for blank input and ErrConfigIncomplete before setup.
// A chat failure is returned as an error; a speech failure is not, since the turn
// still completed and only the audio is missing.
func (a *Assistant) Submit(ctx context.Context, message string) (domain.TurnResult, error) {
	message = strings.TrimSpace(message)

	a.mu.Lock()
	if a.state != domain.TurnIdle {
		a.mu.Unlock()
		return domain.TurnResult{}, domain.ErrBusy
	}
	if message == "" {
		a.mu.Unlock()
		return domain.TurnResult{}, domain.ErrEmptyMessage
	}
	cfg := a.cfg
	if !cfg.Complete() {
		a.mu.Unlock()
		a.deps.Notifier.Status(ctx, "", ConfigureFirstStatus)
		a.deps.Notifier.SetupRequired(ctx)
		return domain.TurnResult{}, domain.ErrConfigIncomplete
	}

	turnID := uuid.New().String()
	turnCtx, cancel := context.WithCancel(ctx)
	a.state = domain.TurnSubmitting
	a.turnID = turnID
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	turnCtx = log.WithTurn(turnCtx, turnID)
	result := domain.TurnResult{TurnID: turnID}

	a.deps.Notifier.Input(turnCtx, turnID, true)
	a.deps.Notifier.Status(turnCtx, turnID, ThinkingStatus)

	if !a.advance(turnID, domain.TurnAwaitingChat) {
		return result, domain.ErrTurnCancelled
	}
	reply, err := a.getReply(turnCtx, message, cfg.ChatAPIKey)
	if err != nil {
		if a.cancelled(turnCtx, turnID) {
			return result, domain.ErrTurnCancelled
		}
		log.WithCtx(turnCtx).Error("Chat request failed", zap.Error(err))
		result.Status = chatFailurePrefix + err.Error()
		if !a.finish(turnCtx, turnID, result.Status) {
			return result, domain.ErrTurnCancelled
		}
		return result, err
	}

	if !a.advance(turnID, domain.TurnAwaitingSpeech) {
		return result, domain.ErrTurnCancelled
	}
	audio, err := a.synthesize(turnCtx, reply, cfg.SpeechAPIKey, cfg.VoiceID)
	if err != nil {
		if a.cancelled(turnCtx, turnID) {
			return result, domain.ErrTurnCancelled
		}
		// The reply text is dropped here: the assistant only ever speaks.
		log.WithCtx(turnCtx).Error("Speech conversion failed", zap.Error(err))
		result.Status = domain.SpeechFailureMessage(err)
		if !a.finish(turnCtx, turnID, result.Status) {
			return result, domain.ErrTurnCancelled
		}
		return result, nil
	}

	if !a.advance(turnID, domain.TurnPlaying) {
		return result, domain.ErrTurnCancelled
	}
	artifact, err := a.deps.Audio.Put(turnCtx, turnID, audio, audioContentType)
	if err != nil {
		log.WithCtx(turnCtx).Error("Failed to store audio", zap.Error(err))
		result.Status = domain.SpeechFailureMessage(err)
		a.finish(turnCtx, turnID, result.Status)
		return result, nil
	}
	result.Artifact = &artifact

	a.deps.Notifier.Status(turnCtx, turnID, "")
	a.deps.Playback.Play(turnCtx, artifact)

	// Playback outcomes only touch the status line from here on.
	a.release(turnCtx, turnID)
	return result, nil
}

func (a *Assistant) getReply(ctx context.Context, message, apiKey string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.ChatTimeout)
	defer cancel()

	start := time.Now()
	reply, err := a.deps.Llm.GetReply(callCtx, message, apiKey)
	log.WithCtx(ctx).Debug("Chat call finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	return reply, err
}

func (a *Assistant) synthesize(ctx context.Context, text, apiKey, voiceID string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.SpeechTimeout)
	defer cancel()

	start := time.Now()
	audio, err := a.deps.Synthesizer.Synthesize(callCtx, text, apiKey, voiceID)
	log.WithCtx(ctx).Debug("Speech call finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(audio)),
		zap.Bool("ok", err == nil))
	return audio, err
}

// advance moves turnID to next if it is still the current turn.
func (a *Assistant) advance(turnID string, next domain.TurnState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.turnID != turnID {
		return false
	}
	if !a.state.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal turn transition %s -> %s", a.state, next))
	}
	a.state = next
	return true
}

// cancelled reports whether the turn ended because it was cancelled, either through
// Cancel or by its caller, and makes sure the assistant is idle again if so.
func (a *Assistant) cancelled(ctx context.Context, turnID string) bool {
	if !errors.Is(ctx.Err(), context.Canceled) {
		return !a.current(turnID)
	}
	a.abort(ctx, turnID)
	return true
}

func (a *Assistant) current(turnID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.turnID == turnID
}

func (a *Assistant) abort(ctx context.Context, turnID string) bool {
	a.mu.Lock()
	if a.turnID != turnID {
		a.mu.Unlock()
		return false
	}
	a.cancel()
	a.resetLocked()
	a.mu.Unlock()

	log.WithCtx(log.WithTurn(ctx, turnID)).Info("Turn cancelled")
	a.deps.Notifier.Status(ctx, turnID, "")
	a.deps.Notifier.Input(ctx, turnID, false)
	return true
}

// finish shows status and returns turnID to idle. It is a no-op for a turn that
// was cancelled in the meantime.
func (a *Assistant) finish(ctx context.Context, turnID, status string) bool {
	if !a.current(turnID) {
		return false
	}
	a.deps.Notifier.Status(ctx, turnID, status)
	return a.release(ctx, turnID)
}

func (a *Assistant) release(ctx context.Context, turnID string) bool {
	a.mu.Lock()
	if a.turnID != turnID {
		a.mu.Unlock()
		return false
	}
	a.resetLocked()
	a.mu.Unlock()

	a.deps.Notifier.Input(ctx, turnID, false)
	return true
}

func (a *Assistant) resetLocked() {
	a.state = domain.TurnIdle
	a.turnID = ""
	a.cancel = nil
}

// IsUserError reports whether err was caused by the submission itself rather than
// by a remote service.
func IsUserError(err error) bool {
	return errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, domain.ErrEmptyMessage) ||
		errors.Is(err, domain.ErrConfigIncomplete)
}
