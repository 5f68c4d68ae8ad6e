package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/hal-voice/adapters/audio"
	"github.com/satriahrh/hal-voice/adapters/configstore"
	"github.com/satriahrh/hal-voice/adapters/hasher"
	halhttp "github.com/satriahrh/hal-voice/adapters/http"
	"github.com/satriahrh/hal-voice/adapters/llm"
	"github.com/satriahrh/hal-voice/adapters/message_broker"
	"github.com/satriahrh/hal-voice/adapters/speech"
	"github.com/satriahrh/hal-voice/adapters/tts"
	"github.com/satriahrh/hal-voice/adapters/websocket"
	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/usecase"
	"github.com/satriahrh/hal-voice/utils/config"
	"github.com/satriahrh/hal-voice/utils/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	gotenv.Load()
	defer log.Sync()

	settings, err := config.FromEnv()
	if err != nil {
		log.With().Fatal("Invalid settings", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		log.With().Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, settings config.Settings) error {
	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	notifier := usecase.NewNotifier(broker)
	audioStore := audio.NewMemoryStore(settings.AudioCacheSize)
	player := websocket.NewPlayer(websocket.NewHub())
	playback := usecase.NewPlaybackController(player, audioStore, notifier)

	assistant := usecase.NewAssistant(usecase.Dependencies{
		Store:       configstore.NewDotenvStore(settings.ConfigStorePath),
		Llm:         newLlm(settings),
		Synthesizer: newSynthesizer(settings),
		Audio:       audioStore,
		Playback:    playback,
		Notifier:    notifier,
		Hasher:      hasher.New(),
	}, usecase.Options{
		ChatTimeout:   settings.ChatTimeout,
		SpeechTimeout: settings.SpeechTimeout,
	})

	server := websocket.NewServer(broker, player, assistant)

	if _, err := assistant.LoadConfiguration(ctx); err != nil {
		return err
	}

	var transcriber domain.Transcriber
	if settings.VoiceInput {
		googleSpeech, err := speech.NewGoogleSpeech(ctx, settings.VoiceInputLanguage)
		if err != nil {
			return err
		}
		defer googleSpeech.Close()
		transcriber = googleSpeech
	}

	handler := halhttp.NewHandler(halhttp.Config{
		JWTSecret:    settings.JWTSecret,
		ClientKey:    settings.ClientKey,
		ClientSecret: settings.ClientSecret,
	}, assistant, playback, audioStore, transcriber)

	e := newEcho(handler, server)

	log.WithCtx(ctx).Info("Starting server",
		zap.String("addr", settings.Addr),
		zap.String("chat_provider", settings.ChatProvider),
		zap.String("speech_provider", settings.SpeechProvider),
		zap.Bool("voice_input", settings.VoiceInput))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		playback.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := e.Start(settings.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.With().Info("Shutting down")
		assistant.Cancel(context.Background())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLlm(settings config.Settings) domain.Llm {
	if settings.ChatProvider == config.GeminiProvider {
		return llm.NewGeminiClient(llm.GeminiConfig{Model: settings.ChatModel})
	}
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		Model:   settings.ChatModel,
		BaseURL: settings.OpenAIBaseURL,
	})
}

func newSynthesizer(settings config.Settings) domain.Synthesizer {
	if settings.SpeechProvider == config.GoogleProvider {
		return tts.NewGoogleTTS()
	}
	return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{BaseURL: settings.ElevenLabsBaseURL})
}

func newEcho(handler *halhttp.Handler, server *websocket.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Security middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-API-Key",
			"X-API-Secret",
			"X-Device-ID",
		},
		MaxAge: 86400,
	}))

	e.Use(middleware.BodyLimit("10MB"))

	e.GET("/ws", server.Handler, handler.JWTMiddleware)
	handler.Register(e)
	return e
}
