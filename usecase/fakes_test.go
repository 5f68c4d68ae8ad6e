package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/satriahrh/hal-voice/adapters/audio"
	"github.com/satriahrh/hal-voice/adapters/configstore"
	"github.com/satriahrh/hal-voice/adapters/hasher"
	"github.com/satriahrh/hal-voice/adapters/message_broker"
	"github.com/satriahrh/hal-voice/domain"
)

var completeConfig = domain.Configuration{ChatAPIKey: "sk-test", SpeechAPIKey: "xi-test", VoiceID: "voice-1"}

type fakeLlm struct {
	mu       sync.Mutex
	messages []string
	keys     []string
	reply    string
	err      error
	// block, when set, is waited on (or ctx) before answering.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeLlm) GetReply(ctx context.Context, userMessage, apiKey string) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, userMessage)
	f.keys = append(f.keys, apiKey)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeLlm) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	texts  []string
	voices []string
	audio  []byte
	err    error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, apiKey, voiceID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voiceID)
	return f.audio, f.err
}

func (f *fakeSynthesizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type playCall struct {
	artifact domain.AudioArtifact
	mode     domain.PlaybackMode
}

type fakePlayer struct {
	mu     sync.Mutex
	plays  []playCall
	err    error
	events chan domain.PlaybackEvent
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan domain.PlaybackEvent, 8)}
}

func (f *fakePlayer) Play(ctx context.Context, artifact domain.AudioArtifact, mode domain.PlaybackMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, playCall{artifact: artifact, mode: mode})
	return f.err
}

func (f *fakePlayer) Events() <-chan domain.PlaybackEvent { return f.events }

func (f *fakePlayer) calls() []playCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playCall(nil), f.plays...)
}

type harness struct {
	assistant *Assistant
	playback  *PlaybackController
	notifier  *Notifier
	broker    *message_broker.ChannelMessageBroker
	ui        <-chan domain.Message
	llm       *fakeLlm
	tts       *fakeSynthesizer
	player    *fakePlayer
	audio     *audio.MemoryStore
	store     *configstore.MemoryStore
}

func newHarness(t *testing.T, cfg domain.Configuration, opts Options) *harness {
	t.Helper()

	broker := message_broker.NewChannelMessageBroker()
	ui, err := broker.Subscribe(context.Background(), domain.UITopic, "")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	h := &harness{
		broker: broker,
		ui:     ui,
		llm:    &fakeLlm{reply: "I am putting myself to the fullest possible use."},
		tts:    &fakeSynthesizer{audio: []byte("mp3-bytes")},
		player: newFakePlayer(),
		audio:  audio.NewMemoryStore(4),
		store:  configstore.NewMemoryStore(cfg),
	}
	h.notifier = NewNotifier(broker)
	h.playback = NewPlaybackController(h.player, h.audio, h.notifier)
	h.assistant = NewAssistant(Dependencies{
		Store:       h.store,
		Llm:         h.llm,
		Synthesizer: h.tts,
		Audio:       h.audio,
		Playback:    h.playback,
		Notifier:    h.notifier,
		Hasher:      hasher.New(),
	}, opts)

	if _, err := h.assistant.LoadConfiguration(context.Background()); err != nil {
		t.Fatalf("load configuration: %v", err)
	}
	return h
}

// drain returns every UI event published so far.
func (h *harness) drain(t *testing.T) []domain.UIEvent {
	t.Helper()
	var events []domain.UIEvent
	for {
		select {
		case msg := <-h.ui:
			var ev domain.UIEvent
			if err := sonic.Unmarshal(msg.Payload, &ev); err != nil {
				t.Fatalf("bad UI event %s: %v", msg.Payload, err)
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func hasEvent(events []domain.UIEvent, typ domain.UIEventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
