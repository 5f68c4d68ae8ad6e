// Command console is a terminal front-end for the assistant: typed lines become
// messages and spoken replies are played through a local audio player.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/adapters/player"
	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	defaultServerURL = "http://localhost:8080"
	deviceID         = "console"
	usage            = `Commands:
  <text>                          talk to HAL
  /play                           play the last reply again
  /config <openai> <elevenlabs> <voice-id>
  /cancel                         abandon the turn in progress
  exit                            quit`
)

type playbackReport struct {
	Type string `json:"type"`
	domain.PlaybackEvent
}

type console struct {
	api    *apiClient
	player *player.ExecPlayer

	connMu sync.Mutex
	conn   *websocket.Conn

	mu       sync.Mutex
	control  *domain.ManualControl
	sendable bool
}

func main() {
	gotenv.Load()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	playerCommand := os.Getenv("PLAYER_COMMAND")
	if playerCommand == "" {
		playerCommand = player.DefaultCommand
	}
	execPlayer, err := player.NewExecPlayer(playerCommand)
	if err != nil {
		return err
	}

	serverURL := os.Getenv("HAL_SERVER")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	api := newAPIClient(serverURL)
	if err := api.authenticate(ctx, os.Getenv("CLIENT_KEY"), os.Getenv("CLIENT_SECRET"), deviceID); err != nil {
		return err
	}

	wsURL, err := api.websocketURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", serverURL, err)
	}
	defer conn.Close()

	c := &console{api: api, player: execPlayer, conn: conn, sendable: true}
	go c.readEvents(ctx)
	go c.forwardPlayback(ctx)

	go func() {
		<-ctx.Done()
		conn.Close()
		os.Stdin.Close()
	}()

	fmt.Println("Connected to HAL 9000. Type /help for commands.")
	return c.readInput(ctx)
}

func (c *console) readInput(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
		case line == "exit":
			return nil
		case line == "/help":
			fmt.Println(usage)
		case line == "/cancel":
			if err := c.api.cancel(ctx); err != nil {
				fmt.Println("cancel failed:", err)
			}
		case line == "/play":
			c.playLast(ctx)
		case strings.HasPrefix(line, "/config"):
			c.configure(ctx, strings.Fields(line)[1:])
		default:
			c.submit(ctx, line)
		}
	}
}

func (c *console) submit(ctx context.Context, text string) {
	c.mu.Lock()
	sendable := c.sendable
	c.mu.Unlock()
	if !sendable {
		fmt.Println("HAL is still processing the previous message.")
		return
	}

	// The request returns once the reply is spoken; status arrives over the socket.
	go func() {
		_, err := c.api.submit(ctx, text)
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			fmt.Println("\nHAL is busy.")
		} else if err != nil && ctx.Err() == nil {
			log.WithCtx(ctx).Debug("Submit failed", zap.Error(err))
		}
	}()
}

func (c *console) configure(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Println("usage: /config <openai-key> <elevenlabs-key> <voice-id>")
		return
	}
	if err := c.api.configure(ctx, args[0], args[1], args[2]); err != nil {
		fmt.Println("saving configuration failed:", err)
		return
	}
	fmt.Println("Configuration saved.")
}

func (c *console) playLast(ctx context.Context) {
	c.mu.Lock()
	control := c.control
	c.mu.Unlock()

	if control == nil || !control.Enabled {
		fmt.Println("Nothing to play.")
		return
	}
	if err := c.api.play(ctx, control.ArtifactID); err != nil {
		fmt.Println("play failed:", err)
	}
}

func (c *console) readEvents(ctx context.Context) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				fmt.Println("\nconnection lost:", err)
			}
			return
		}

		var ev domain.UIEvent
		if err := sonic.Unmarshal(message, &ev); err != nil {
			log.WithCtx(ctx).Warn("Ignoring malformed event", zap.Error(err))
			continue
		}
		c.render(ctx, ev)
	}
}

func (c *console) render(ctx context.Context, ev domain.UIEvent) {
	switch ev.Type {
	case domain.StatusEvent:
		if ev.Status != nil && ev.Status.Visible {
			fmt.Printf("\n[%s]\n", ev.Status.Text)
		}
	case domain.InputEvent:
		if ev.Input != nil {
			c.mu.Lock()
			c.sendable = ev.Input.Enabled
			c.mu.Unlock()
		}
	case domain.SetupRequiredEvent:
		fmt.Println("\nAPI keys are not configured.")
		fmt.Println("usage: /config <openai-key> <elevenlabs-key> <voice-id>")
	case domain.ControlEvent:
		if ev.Control == nil {
			return
		}
		control := *ev.Control
		c.mu.Lock()
		c.control = &control
		c.mu.Unlock()
		if control.Enabled {
			fmt.Printf("\n%s  (type /play)\n", control.Label)
		}
	case domain.PlayEvent:
		if ev.Play != nil {
			go c.play(ctx, *ev.Play)
		}
	}
}

// play downloads and plays an artifact, reporting anything that stops it from
// starting. The player reports the rest through its events.
func (c *console) play(ctx context.Context, cmd domain.PlayCommand) {
	artifact, err := c.api.download(ctx, cmd)
	if err == nil {
		err = c.player.Play(ctx, artifact, cmd.Mode)
	}
	if err == nil {
		return
	}

	kind := domain.PlaybackFailed
	if errors.Is(err, domain.ErrPlaybackBlocked) && cmd.Mode == domain.AutoPlayback {
		kind = domain.PlaybackBlocked
	}
	c.report(ctx, domain.PlaybackEvent{
		ArtifactID: cmd.ArtifactID,
		Kind:       kind,
		Mode:       cmd.Mode,
		Detail:     err.Error(),
	})
}

func (c *console) forwardPlayback(ctx context.Context) {
	for {
		select {
		case ev := <-c.player.Events():
			c.report(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (c *console) report(ctx context.Context, ev domain.PlaybackEvent) {
	payload, err := sonic.Marshal(playbackReport{Type: "playback", PlaybackEvent: ev})
	if err != nil {
		log.WithCtx(ctx).Error("Failed to encode playback report", zap.Error(err))
		return
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.WithCtx(ctx).Warn("Failed to send playback report", zap.Error(err))
	}
}
