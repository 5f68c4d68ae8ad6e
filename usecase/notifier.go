package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	sendLabel       = "Send"
	processingLabel = "Processing..."
)

// Notifier publishes UI state changes on the broker and remembers the current
// status line and input state so late joiners can be brought up to date.
type Notifier struct {
	broker domain.MessageBroker

	mu     sync.RWMutex
	status string
	input  domain.InputState
}

func NewNotifier(broker domain.MessageBroker) *Notifier {
	return &Notifier{
		broker: broker,
		input:  domain.InputState{Enabled: true, SendLabel: sendLabel},
	}
}

// Status replaces the status line; blank text hides it.
func (n *Notifier) Status(ctx context.Context, turnID, text string) {
	n.mu.Lock()
	n.status = text
	n.mu.Unlock()

	n.publish(ctx, domain.UIEvent{
		Type:   domain.StatusEvent,
		TurnID: turnID,
		Status: statusLine(text),
	})
}

// Input enables or disables the text input and send control.
func (n *Notifier) Input(ctx context.Context, turnID string, processing bool) {
	state := domain.InputState{Enabled: !processing, SendLabel: sendLabel}
	if processing {
		state.SendLabel = processingLabel
	}

	n.mu.Lock()
	n.input = state
	n.mu.Unlock()

	n.publish(ctx, domain.UIEvent{
		Type:   domain.InputEvent,
		TurnID: turnID,
		Input:  &state,
	})
}

func (n *Notifier) SetupRequired(ctx context.Context) {
	n.publish(ctx, domain.UIEvent{Type: domain.SetupRequiredEvent})
}

func (n *Notifier) Control(ctx context.Context, turnID string, control domain.ManualControl) {
	n.publish(ctx, domain.UIEvent{
		Type:    domain.ControlEvent,
		TurnID:  turnID,
		Control: &control,
	})
}

// CurrentStatus returns the status line text as last published.
func (n *Notifier) CurrentStatus() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Snapshot returns the events that reproduce the current status line and input state.
func (n *Notifier) Snapshot() []domain.UIEvent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	input := n.input
	now := time.Now()
	return []domain.UIEvent{
		{Type: domain.StatusEvent, Timestamp: now, Status: statusLine(n.status)},
		{Type: domain.InputEvent, Timestamp: now, Input: &input},
	}
}

func (n *Notifier) publish(ctx context.Context, event domain.UIEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := sonic.Marshal(event)
	if err != nil {
		log.WithCtx(ctx).Error("Failed to marshal UI event", zap.Error(err))
		return
	}

	// UI updates must still go out when the turn that caused them was cancelled.
	if err := n.broker.Publish(context.WithoutCancel(ctx), domain.UITopic, "", payload); err != nil {
		log.WithCtx(ctx).Warn("Failed to publish UI event",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func statusLine(text string) *domain.StatusLine {
	return &domain.StatusLine{Text: text, Visible: strings.TrimSpace(text) != ""}
}
