package engine

import (
	"context"
	"time"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// videoPayload is the wire shape of a video generation request.
type videoPayload struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	FPS             int    `json:"fps"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

// VideoEngine calls an HTTP video diffusion server.
type VideoEngine struct {
	client *Client
}

// NewVideoEngine creates a video engine client.
func NewVideoEngine(baseURL string, timeout time.Duration) *VideoEngine {
	return &VideoEngine{client: NewClient(baseURL, timeout)}
}

// GenerateVideo requests one video clip and returns the MP4 bytes.
func (e *VideoEngine) GenerateVideo(ctx context.Context, req core.VideoRequest) ([]byte, error) {
	payload := videoPayload{
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		FPS:             req.FPS,
		Width:           req.Width,
		Height:          req.Height,
	}

	return e.client.generate(ctx, apiGenerateVideo, payload, contentTypeMP4)
}

// HealthCheck reports whether the video server is reachable.
func (e *VideoEngine) HealthCheck(ctx context.Context) error {
	return e.client.HealthCheck(ctx)
}
