// Package request defines the service's JSON request envelope and routes each
// request type to the render pipeline.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/cinema-ai/cinema-service/internal/core"
	"github.com/cinema-ai/cinema-service/internal/pipeline"
	"github.com/cinema-ai/cinema-service/internal/script"
)

// Request types accepted by the router.
const (
	TypeHealthCheck   = "health_check"
	TypeSingleScene   = "single_scene"
	TypeScriptToVideo = "script_to_video"
	TypeBatchScenes   = "batch_scenes"
)

// ServiceName identifies this service in health responses.
const ServiceName = "cinema-render"

// Envelope is the outer wrapper of every request.
type Envelope struct {
	Input json.RawMessage `json:"input"`
}

// Payload is the inner request body. Which fields matter depends on the
// request type.
type Payload struct {
	RequestType string          `json:"type"`
	Scene       *core.Scene     `json:"scene,omitempty"`
	Scenes      []core.Scene    `json:"scenes,omitempty"`
	Script      string          `json:"script,omitempty"`
	Resolution  core.Resolution `json:"resolution,omitempty"`
	FPS         int             `json:"fps,omitempty"`
	Style       string          `json:"style,omitempty"`
}

// HealthResponse is the body of a health_check reply. It is produced without
// contacting any generation engine.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// BatchResponse aggregates per-scene outcomes of a batch_scenes request, in
// the order the scenes were submitted.
type BatchResponse struct {
	Results   []core.RenderResult `json:"results"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// ScriptBreaker turns raw script text into an ordered scene list.
type ScriptBreaker interface {
	BreakScript(ctx context.Context, text string, opts script.Options) ([]core.Scene, error)
}

// Router dispatches decoded requests to the pipeline. The pipeline is built
// lazily so health checks succeed before any engine is reachable.
type Router struct {
	pipeline *pipeline.Lazy
	breaker  ScriptBreaker
	version  string
	log      *logger.Logger
}

// NewRouter creates a router.
func NewRouter(lazyPipeline *pipeline.Lazy, breaker ScriptBreaker, version string, log *logger.Logger) *Router {
	return &Router{
		pipeline: lazyPipeline,
		breaker:  breaker,
		version:  version,
		log:      log,
	}
}

// Handle decodes one envelope and dispatches it. On failure the returned
// *Error carries the kind the transport maps to a status code.
func (r *Router) Handle(ctx context.Context, raw []byte) (any, *Error) {
	var envelope Envelope

	err := json.Unmarshal(raw, &envelope)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("malformed request envelope: %v", err))
	}

	if len(envelope.Input) == 0 {
		return nil, NewValidationError("request envelope is missing the input object")
	}

	var payload Payload

	err = json.Unmarshal(envelope.Input, &payload)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("malformed request input: %v", err))
	}

	r.log.Info("Handling %s request", payload.RequestType)

	switch payload.RequestType {
	case TypeHealthCheck:
		return r.Health(), nil
	case TypeSingleScene:
		return r.handleSingleScene(ctx, payload)
	case TypeBatchScenes:
		return r.handleBatchScenes(ctx, payload)
	case TypeScriptToVideo:
		return r.handleScriptToVideo(ctx, payload)
	default:
		return nil, NewUnknownTypeError(payload.RequestType)
	}
}

// Health answers from local state only, never contacting an engine.
func (r *Router) Health() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Version:   r.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (r *Router) handleSingleScene(ctx context.Context, payload Payload) (any, *Error) {
	if payload.Scene == nil {
		return nil, NewValidationError("single_scene requires a scene object")
	}

	scene := *payload.Scene
	scene.ApplyDefaults()

	err := scene.Validate()
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	renderer, err := r.pipeline.Get()
	if err != nil {
		return nil, NewGenerationError(fmt.Sprintf("pipeline unavailable: %v", err))
	}

	result := renderer.RenderScene(ctx, scene)
	if result.Status != core.StatusSuccess {
		return nil, NewGenerationError(fmt.Sprintf("scene %s failed at stage %s: %s",
			result.SceneID, result.Stage, result.Error))
	}

	return result, nil
}

// handleBatchScenes renders best-effort: invalid or failing scenes produce
// failed entries without aborting the rest, and results keep input order.
func (r *Router) handleBatchScenes(ctx context.Context, payload Payload) (any, *Error) {
	if len(payload.Scenes) == 0 {
		return nil, NewValidationError("batch_scenes requires a non-empty scenes list")
	}

	renderer, err := r.pipeline.Get()
	if err != nil {
		return nil, NewGenerationError(fmt.Sprintf("pipeline unavailable: %v", err))
	}

	results := renderer.RenderBatch(ctx, payload.Scenes)

	response := BatchResponse{
		Results:   results,
		Total:     len(results),
		Succeeded: 0,
		Failed:    0,
	}

	for _, res := range results {
		if res.Status == core.StatusSuccess {
			response.Succeeded++
		} else {
			response.Failed++
		}
	}

	return response, nil
}

func (r *Router) handleScriptToVideo(ctx context.Context, payload Payload) (any, *Error) {
	if payload.Script == "" {
		return nil, NewValidationError("script_to_video requires non-empty script text")
	}

	opts := script.Options{
		Resolution: payload.Resolution,
		FPS:        payload.FPS,
		Style:      payload.Style,
	}

	scenes, err := r.breaker.BreakScript(ctx, payload.Script, opts)
	if err != nil {
		return nil, NewGenerationError(fmt.Sprintf("script breakdown failed: %v", err))
	}

	if len(scenes) == 0 {
		return nil, NewValidationError("script produced no scenes")
	}

	renderer, err := r.pipeline.Get()
	if err != nil {
		return nil, NewGenerationError(fmt.Sprintf("pipeline unavailable: %v", err))
	}

	result := renderer.RenderMovie(ctx, scenes)
	if result.Status != core.StatusSuccess {
		return nil, NewGenerationError(fmt.Sprintf("movie render failed at stage %s: %s",
			result.Stage, result.Error))
	}

	return result, nil
}
