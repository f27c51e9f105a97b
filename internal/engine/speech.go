package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// Speech defaults.
const (
	defaultSpeechTemperature = 0.75
	defaultSpeechLanguage    = "en"
)

// ErrSpeechTextEmpty indicates a synthesis request with no text.
var ErrSpeechTextEmpty = errors.New("speech text cannot be empty")

// speechPayload is the wire shape of a voice synthesis request. A non-empty
// speaker_ref_path asks the engine to clone the referenced voice sample.
type speechPayload struct {
	Text           string  `json:"text"`
	SpeakerRefPath string  `json:"speaker_ref_path,omitempty"`
	Language       string  `json:"language"`
	Emotion        string  `json:"emotion,omitempty"`
	Temperature    float64 `json:"temperature"`
}

// SpeechEngine calls an HTTP voice synthesis server with voice cloning
// support.
type SpeechEngine struct {
	client *Client
}

// NewSpeechEngine creates a speech engine client.
func NewSpeechEngine(baseURL string, timeout time.Duration) *SpeechEngine {
	return &SpeechEngine{client: NewClient(baseURL, timeout)}
}

// Synthesize requests one spoken clip and returns the WAV bytes.
func (e *SpeechEngine) Synthesize(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrSpeechTextEmpty
	}

	payload := speechPayload{
		Text:           req.Text,
		SpeakerRefPath: req.SpeakerRefPath,
		Language:       req.Language,
		Emotion:        req.Emotion,
		Temperature:    req.Temperature,
	}

	if payload.Temperature == 0 {
		payload.Temperature = defaultSpeechTemperature
	}

	if payload.Language == "" {
		payload.Language = defaultSpeechLanguage
	}

	return e.client.generate(ctx, apiGenerateSpeech, payload, contentTypeWAV)
}

// HealthCheck reports whether the speech server is reachable.
func (e *SpeechEngine) HealthCheck(ctx context.Context) error {
	return e.client.HealthCheck(ctx)
}
