package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const (
	// JWT settings
	JWTExpiry = 24 * time.Hour
	jwtIssuer = "hal-voice"

	// Rate limiting
	MaxConcurrent = 10

	// Voice input settings
	MaxVoiceSize = 10 * 1024 * 1024 // 10MB
)

// Assistant is the turn orchestrator as seen by the HTTP API.
type Assistant interface {
	Submit(ctx context.Context, message string) (domain.TurnResult, error)
	Cancel(ctx context.Context) bool
	Configure(ctx context.Context, cfg domain.Configuration) error
	Configuration() domain.Configuration
	Processing() bool
}

// Playback presses the manual play control.
type Playback interface {
	PlayManually(ctx context.Context, artifactID string) error
}

type Config struct {
	JWTSecret    string
	ClientKey    string
	ClientSecret string
}

type Handler struct {
	assistant   Assistant
	playback    Playback
	audio       domain.AudioStore
	transcriber domain.Transcriber
	cfg         Config
	semaphore   chan struct{}
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	TurnID   string                `json:"turn_id,omitempty"`
	Status   string                `json:"status"`
	Text     string                `json:"text,omitempty"`
	Artifact *domain.AudioArtifact `json:"artifact,omitempty"`
}

type ConfigRequest struct {
	OpenAIAPIKey     string `json:"openai_api_key"`
	ElevenLabsAPIKey string `json:"elevenlabs_api_key"`
	VoiceID          string `json:"voice_id"`
}

type ConfigResponse struct {
	Complete     bool   `json:"complete"`
	VoiceID      string `json:"voice_id"`
	HasChatKey   bool   `json:"has_chat_key"`
	HasSpeechKey bool   `json:"has_speech_key"`
}

type JWTClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// NewHandler builds the API handler. transcriber may be nil, which disables
// voice input.
func NewHandler(cfg Config, assistant Assistant, playback Playback, audio domain.AudioStore, transcriber domain.Transcriber) *Handler {
	return &Handler{
		assistant:   assistant,
		playback:    playback,
		audio:       audio,
		transcriber: transcriber,
		cfg:         cfg,
		semaphore:   make(chan struct{}, MaxConcurrent),
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api/v1")

	// Public endpoints (no auth required)
	api.GET("/health", h.HealthCheck)
	api.POST("/auth/token", h.GenerateJWT)
	api.GET("/audio/:id", h.GetAudio)

	secured := api.Group("", h.JWTMiddleware, h.RateLimitMiddleware)
	secured.GET("/config", h.GetConfig)
	secured.PUT("/config", h.PutConfig)
	secured.POST("/messages", h.SubmitMessage)
	secured.POST("/turn/cancel", h.CancelTurn)
	secured.POST("/voice", h.Voice)
	secured.POST("/audio/:id/play", h.PlayAudio)
}

// GenerateJWT creates a JWT token for authenticated clients
func (h *Handler) GenerateJWT(c echo.Context) error {
	key := c.Request().Header.Get("X-API-Key")
	secret := c.Request().Header.Get("X-API-Secret")

	if key != h.cfg.ClientKey || secret != h.cfg.ClientSecret {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	deviceID := c.Request().Header.Get("X-Device-ID")
	if deviceID == "" {
		deviceID = c.RealIP()
	}

	now := time.Now()
	claims := &JWTClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   "assistant",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		log.WithCtx(c.Request().Context()).Error("Error signing JWT", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token": tokenString,
		"type":  "Bearer",
	})
}

// JWTMiddleware authenticates with a Bearer header. Browsers cannot set headers
// on a websocket handshake, so a "token" query parameter is accepted as well.
func (h *Handler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := c.QueryParam("token")
		if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}
		}
		if tokenString == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(h.cfg.JWTSecret), nil
		})
		if err != nil {
			log.WithCtx(c.Request().Context()).Debug("JWT validation error", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
			c.Set("device_id", claims.DeviceID)
			return next(c)
		}

		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
	}
}

// RateLimitMiddleware bounds the number of requests served at once.
func (h *Handler) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case h.semaphore <- struct{}{}:
			defer func() { <-h.semaphore }()
			return next(c)
		default:
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many concurrent requests")
		}
	}
}

// HealthCheck endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"service":     "hal-voice",
		"processing":  h.assistant.Processing(),
		"configured":  h.assistant.Configuration().Complete(),
		"voice_input": h.transcriber != nil,
	})
}

// GetConfig reports which credentials are present without revealing them.
func (h *Handler) GetConfig(c echo.Context) error {
	cfg := h.assistant.Configuration()
	return c.JSON(http.StatusOK, ConfigResponse{
		Complete:     cfg.Complete(),
		VoiceID:      cfg.VoiceID,
		HasChatKey:   cfg.ChatAPIKey != "",
		HasSpeechKey: cfg.SpeechAPIKey != "",
	})
}

func (h *Handler) PutConfig(c echo.Context) error {
	var req ConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid configuration payload")
	}

	cfg := domain.Configuration{
		ChatAPIKey:   strings.TrimSpace(req.OpenAIAPIKey),
		SpeechAPIKey: strings.TrimSpace(req.ElevenLabsAPIKey),
		VoiceID:      strings.TrimSpace(req.VoiceID),
	}
	if err := h.assistant.Configure(c.Request().Context(), cfg); err != nil {
		log.WithCtx(c.Request().Context()).Error("Failed to save configuration", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save configuration")
	}

	return h.GetConfig(c)
}

// SubmitMessage runs a full turn and answers once the reply has been handed to
// the player.
func (h *Handler) SubmitMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message payload")
	}

	result, err := h.assistant.Submit(c.Request().Context(), req.Text)
	if err != nil {
		return submitError(result, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{
		TurnID:   result.TurnID,
		Status:   result.Status,
		Artifact: result.Artifact,
	})
}

func (h *Handler) CancelTurn(c echo.Context) error {
	cancelled := h.assistant.Cancel(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// Voice transcribes a LINEAR16 recording and submits the transcript as a message.
func (h *Handler) Voice(c echo.Context) error {
	if h.transcriber == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Voice input is disabled")
	}

	contentType := c.Request().Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid content type. Expected audio/* or application/octet-stream")
	}

	ctx := c.Request().Context()
	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxVoiceSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read audio")
	}
	if len(audio) > MaxVoiceSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Audio too large")
	}
	if len(audio) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Empty audio")
	}

	text, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		log.WithCtx(ctx).Error("Transcription failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Transcription failed")
	}
	if strings.TrimSpace(text) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "No speech recognized")
	}

	result, err := h.assistant.Submit(ctx, text)
	if err != nil {
		return submitError(result, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{
		TurnID:   result.TurnID,
		Status:   result.Status,
		Text:     text,
		Artifact: result.Artifact,
	})
}

func (h *Handler) GetAudio(c echo.Context) error {
	artifact, err := h.audio.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Audio not found")
		}
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, artifact.ContentType, artifact.Data)
}

// PlayAudio presses the manual play control of an artifact.
func (h *Handler) PlayAudio(c echo.Context) error {
	err := h.playback.PlayManually(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrArtifactNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "No playable audio")
	case errors.Is(err, domain.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, "Audio is already playing")
	case err != nil:
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func submitError(result domain.TurnResult, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrTurnCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConfigIncomplete):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	default:
		// The status line already carries the failure shown to the user.
		return echo.NewHTTPError(http.StatusBadGateway, result.Status).SetInternal(err)
	}
}
