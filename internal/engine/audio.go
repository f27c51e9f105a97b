package engine

import (
	"context"
	"time"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// audioPayload is the wire shape shared by music and sound-effect requests.
type audioPayload struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
}

// MusicEngine calls an HTTP music generation server.
type MusicEngine struct {
	client *Client
}

// NewMusicEngine creates a music engine client.
func NewMusicEngine(baseURL string, timeout time.Duration) *MusicEngine {
	return &MusicEngine{client: NewClient(baseURL, timeout)}
}

// GenerateMusic requests a background track and returns the WAV bytes.
func (e *MusicEngine) GenerateMusic(ctx context.Context, req core.AudioRequest) ([]byte, error) {
	payload := audioPayload{
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
	}

	return e.client.generate(ctx, apiGenerateMusic, payload, contentTypeWAV)
}

// HealthCheck reports whether the music server is reachable.
func (e *MusicEngine) HealthCheck(ctx context.Context) error {
	return e.client.HealthCheck(ctx)
}

// EffectsEngine calls an HTTP sound-effect generation server. The same
// engine also renders non-verbal human sounds (sighs, laughter, foley).
type EffectsEngine struct {
	client *Client
}

// NewEffectsEngine creates a sound-effects engine client.
func NewEffectsEngine(baseURL string, timeout time.Duration) *EffectsEngine {
	return &EffectsEngine{client: NewClient(baseURL, timeout)}
}

// GenerateEffect requests one sound-effect clip and returns the WAV bytes.
func (e *EffectsEngine) GenerateEffect(ctx context.Context, req core.AudioRequest) ([]byte, error) {
	payload := audioPayload{
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
	}

	return e.client.generate(ctx, apiGenerateSFX, payload, contentTypeWAV)
}

// HealthCheck reports whether the effects server is reachable.
func (e *EffectsEngine) HealthCheck(ctx context.Context) error {
	return e.client.HealthCheck(ctx)
}
