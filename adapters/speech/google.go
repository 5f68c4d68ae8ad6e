package speech

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/satriahrh/hal-voice/domain"
)

var _ domain.Transcriber = (*GoogleSpeech)(nil)

// GoogleSpeech transcribes short LINEAR16 utterances so they can be submitted as turns.
type GoogleSpeech struct {
	client       *speech.Client
	languageCode string
	sampleRate   int32
}

func NewGoogleSpeech(ctx context.Context, languageCode string) (*GoogleSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google speech client: %w", err)
	}
	return &GoogleSpeech{
		client:       client,
		languageCode: languageCode,
		sampleRate:   16000,
	}, nil
}

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: g.sampleRate,
			LanguageCode:    g.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, alts[0].GetTranscript())
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func (g *GoogleSpeech) Close() error {
	return g.client.Close()
}
