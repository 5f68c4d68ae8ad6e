package message_broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const topicBuffer = 100

var _ domain.MessageBroker = (*ChannelMessageBroker)(nil)

// ChannelMessageBroker implements MessageBroker using Go channels
type ChannelMessageBroker struct {
	topics map[string]chan domain.Message
	mu     sync.RWMutex
	closed bool
}

// NewChannelMessageBroker creates a new channel-based message broker
func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		topics: make(map[string]chan domain.Message),
	}
}

// makeKey creates a unique key for topic and routingKey
func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// channel returns the channel for key, creating it on first use. Caller holds b.mu.
func (b *ChannelMessageBroker) channel(key string) chan domain.Message {
	ch, ok := b.topics[key]
	if !ok {
		ch = make(chan domain.Message, topicBuffer)
		b.topics[key] = ch
	}
	return ch
}

// Publish sends a message to a specific topic and routing key. It never blocks:
// a full topic drops the message with an error.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("message broker is closed")
	}

	channel := b.channel(makeKey(topic, routingKey))
	msg := domain.Message{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	select {
	case channel <- msg:
		log.WithCtx(ctx).Debug("Message published to topic",
			zap.String("topic", topic),
			zap.String("routingKey", routingKey),
			zap.Int("payload_size", len(message)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("topic channel is full: %s:%s", topic, routingKey)
	}
}

// Subscribe listens for messages on a specific topic and routing key
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("message broker is closed")
	}

	log.WithCtx(ctx).Info("Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return b.channel(makeKey(topic, routingKey)), nil
}

// Close closes the message broker and all topic channels
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for key, channel := range b.topics {
		close(channel)
		log.WithCtx(context.Background()).Debug("Closed topic channel", zap.String("key", key))
	}

	b.topics = make(map[string]chan domain.Message)

	log.WithCtx(context.Background()).Info("Message broker closed")
	return nil
}

// GetTopicCount returns the number of active topics (useful for monitoring)
func (b *ChannelMessageBroker) GetTopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// IsClosed returns whether the broker is closed
func (b *ChannelMessageBroker) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
