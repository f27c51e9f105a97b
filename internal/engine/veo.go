package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"google.golang.org/genai"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// Veo defaults.
const (
	defaultVeoModel        = "veo-3.1-generate-001"
	defaultVeoPollInterval = 10 * time.Second
	defaultVeoAspectRatio  = "16:9"
	defaultVeoPersonPolicy = "allow_adult"
)

// Static Veo errors.
var (
	// ErrVeoNoVideo indicates a completed operation without a video payload.
	ErrVeoNoVideo = errors.New("veo operation completed without a video")
	// ErrVeoEmptyBytes indicates a video object carrying neither inline
	// bytes nor a download URI.
	ErrVeoEmptyBytes = errors.New("veo returned a video without bytes or URI")
)

func ptr[T any](v T) *T { return &v }

// VeoConfig selects the Veo model and backend credentials. A non-empty APIKey
// uses the Gemini API backend; otherwise ProjectID/Location select Vertex AI.
type VeoConfig struct {
	Model        string
	APIKey       string
	ProjectID    string
	Location     string
	PollInterval time.Duration
	AspectRatio  string
	PersonPolicy string
}

// VeoEngine generates video through Google's Veo models. Generation is a
// long-running operation polled until completion.
type VeoEngine struct {
	client       *genai.Client
	backend      genai.Backend
	model        string
	pollInterval time.Duration
	aspectRatio  string
	personPolicy string
}

// NewVeoEngine creates a Veo-backed video generator.
func NewVeoEngine(ctx context.Context, cfg VeoConfig) (*VeoEngine, error) {
	clientConfig := &genai.ClientConfig{}

	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	} else {
		clientConfig.Project = cfg.ProjectID
		clientConfig.Location = cfg.Location
		clientConfig.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create veo client: %w", err)
	}

	engine := &VeoEngine{
		client:       client,
		backend:      clientConfig.Backend,
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		aspectRatio:  cfg.AspectRatio,
		personPolicy: cfg.PersonPolicy,
	}

	if engine.model == "" {
		engine.model = defaultVeoModel
	}

	if engine.pollInterval <= 0 {
		engine.pollInterval = defaultVeoPollInterval
	}

	if engine.aspectRatio == "" {
		engine.aspectRatio = defaultVeoAspectRatio
	}

	if engine.personPolicy == "" {
		engine.personPolicy = defaultVeoPersonPolicy
	}

	return engine, nil
}

// GenerateVideo starts a Veo generation operation and polls it to completion,
// returning the MP4 bytes.
func (e *VeoEngine) GenerateVideo(ctx context.Context, req core.VideoRequest) ([]byte, error) {
	videosConfig := &genai.GenerateVideosConfig{
		AspectRatio:      e.aspectRatio,
		PersonGeneration: e.personPolicy,
		DurationSeconds:  ptr(int32(req.DurationSeconds)),
		FPS:              ptr(int32(req.FPS)),
	}

	op, err := e.client.Models.GenerateVideos(ctx, e.model, req.Prompt, nil, videosConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to start veo generation: %w", err)
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("veo generation cancelled: %w", ctx.Err())
		case <-ticker.C:
			op, err = e.client.Operations.GetVideosOperation(ctx, op, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to poll veo operation: %w", err)
			}

			if !op.Done {
				continue
			}

			if op.Error != nil {
				return nil, fmt.Errorf("veo generation failed: %v", op.Error)
			}

			return e.extractVideo(ctx, op)
		}
	}
}

// extractVideo pulls the video out of a completed operation, downloading it
// when the backend returned a reference instead of inline bytes.
func (e *VeoEngine) extractVideo(ctx context.Context, op *genai.GenerateVideosOperation) ([]byte, error) {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, ErrVeoNoVideo
	}

	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, ErrVeoNoVideo
	}

	if len(video.VideoBytes) > 0 {
		return video.VideoBytes, nil
	}

	if video.URI == "" {
		return nil, ErrVeoEmptyBytes
	}

	return e.downloadVideo(ctx, video)
}

// downloadVideo fetches a video the operation returned by reference. The
// Gemini API backend serves file URIs through the Files API; Vertex AI
// returns a Cloud Storage URI fetched with gcloud.
func (e *VeoEngine) downloadVideo(ctx context.Context, video *genai.Video) ([]byte, error) {
	if e.backend == genai.BackendGeminiAPI {
		data, err := e.client.Files.Download(ctx, video, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to download veo video '%s': %w", video.URI, err)
		}

		return data, nil
	}

	return downloadFromGCS(ctx, video.URI)
}

// downloadFromGCS copies a gs:// object to a temporary file and returns its
// contents.
func downloadFromGCS(ctx context.Context, uri string) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "veo_*.mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to create download target: %w", err)
	}

	tmpPath := tmpFile.Name()

	_ = tmpFile.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	cmd := exec.CommandContext(ctx, "gcloud", "storage", "cp", uri, tmpPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("gcloud download failed for '%s': %w - output: %s", uri, err, string(output))
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloaded video: %w", err)
	}

	return data, nil
}
