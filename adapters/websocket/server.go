package websocket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const playbackMessageType = "playback"

// Greeter supplies the events that bring a newly connected front-end up to date.
type Greeter interface {
	Greeting(ctx context.Context) []domain.UIEvent
}

type Server struct {
	upgrader      websocket.Upgrader
	messageBroker domain.MessageBroker
	hub           *Hub
	player        *Player
	greeter       Greeter
}

// inboundMessage is what front-ends send; only playback reports are understood.
type inboundMessage struct {
	Type string `json:"type"`
	domain.PlaybackEvent
}

// NewServer serves the front-ends tracked by player's hub.
func NewServer(messageBroker domain.MessageBroker, player *Player, greeter Greeter) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		messageBroker: messageBroker,
		hub:           player.hub,
		player:        player,
		greeter:       greeter,
	}
}

func (s *Server) Player() *Player {
	return s.player
}

// Run forwards UI events from the broker to every connected front-end until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	messageChan, err := s.messageBroker.Subscribe(ctx, domain.UITopic, "")
	if err != nil {
		return fmt.Errorf("subscribing to UI events: %w", err)
	}

	go s.hub.CloseAll(ctx)
	log.WithCtx(ctx).Info("WebSocket server listening to UI events")

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				return nil
			}
			s.hub.Broadcast(msg.Payload)
		case <-ctx.Done():
			log.WithCtx(ctx).Info("UI event listener stopped")
			return nil
		}
	}
}

func (s *Server) greet(client *Client) {
	for _, event := range s.greeter.Greeting(client.Context()) {
		payload, err := sonic.Marshal(event)
		if err != nil {
			log.WithCtx(client.Context()).Error("Failed to marshal greeting", zap.Error(err))
			continue
		}
		client.SendMessage(payload)
	}
}

func (s *Server) handleMessage(client *Client, message []byte) {
	ctx := client.Context()

	var in inboundMessage
	if err := sonic.Unmarshal(message, &in); err != nil {
		log.WithCtx(ctx).Warn("Ignoring malformed message", zap.Error(err))
		return
	}
	if in.Type != playbackMessageType {
		log.WithCtx(ctx).Debug("Ignoring message", zap.String("type", in.Type))
		return
	}
	if in.ArtifactID == "" {
		log.WithCtx(ctx).Warn("Playback report without artifact id")
		return
	}
	if in.Mode == "" {
		in.Mode = domain.AutoPlayback
	}

	s.player.Report(ctx, in.PlaybackEvent)
}
