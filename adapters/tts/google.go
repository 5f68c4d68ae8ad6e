package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/hal-voice/domain"
	"github.com/satriahrh/hal-voice/utils/log"
)

const defaultLanguageCode = "en-US"

var _ domain.Synthesizer = (*GoogleTTS)(nil)

// GoogleTTS synthesizes with Cloud Text-to-Speech. The voice identifier is a
// voice name such as "en-GB-Wavenet-B"; when it is rejected the language's
// default voice is tried once.
type GoogleTTS struct {
	dial func(ctx context.Context, apiKey string) (speechClient, error)
}

// speechClient is the part of the Cloud client GoogleTTS uses.
type speechClient interface {
	synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

type cloudSpeechClient struct {
	*texttospeech.Client
}

func (c cloudSpeechClient) synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return c.SynthesizeSpeech(ctx, req)
}

func NewGoogleTTS() *GoogleTTS {
	return &GoogleTTS{dial: dialCloudSpeech}
}

func dialCloudSpeech(ctx context.Context, apiKey string) (speechClient, error) {
	client, err := texttospeech.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return cloudSpeechClient{client}, nil
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text, apiKey, voiceID string) ([]byte, error) {
	client, err := g.dial(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	defer client.Close()

	language := languageOf(voiceID)

	audio, err := g.synthesize(ctx, client, text, &texttospeechpb.VoiceSelectionParams{
		LanguageCode: language,
		Name:         voiceID,
	})
	if err == nil {
		return audio, nil
	}
	var apiErr *domain.SpeechAPIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}

	log.WithCtx(ctx).Debug("Named voice rejected, retrying with language default",
		zap.String("voice", voiceID),
		zap.String("language", language))

	return g.synthesize(ctx, client, text, &texttospeechpb.VoiceSelectionParams{
		LanguageCode: language,
	})
}

func (g *GoogleTTS) synthesize(ctx context.Context, client speechClient, text string, voice *texttospeechpb.VoiceSelectionParams) ([]byte, error) {
	req := texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		},
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  domain.VoiceSpeed,
		},
	}
	resp, err := client.synthesize(ctx, &req)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
			return nil, &domain.SpeechAPIError{
				Provider: "Google",
				Status:   httpStatusFromCode(st.Code()),
				Body:     st.Message(),
			}
		}
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	return resp.GetAudioContent(), nil
}

// languageOf takes the "xx-YY" prefix of a voice name.
func languageOf(voiceID string) string {
	parts := strings.SplitN(voiceID, "-", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return defaultLanguageCode
	}
	return parts[0] + "-" + parts[1]
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
