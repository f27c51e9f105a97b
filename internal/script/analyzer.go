package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// Analyzer settings.
const (
	analyzerTemperature = 0.7
	analyzerMaxTokens   = 4000
)

const analyzerSystemPrompt = "You are an expert script analyzer for AI video generation."

const analyzerPromptTemplate = `Analyze this script and break it down into individual scenes.
For each scene provide a visual description, characters, all dialogue with speaker
and emotion, camera directions, required sound effects, non-verbal human sounds,
and an estimated duration of %d seconds or less.

Output only JSON with this structure:
{
  "scenes": [
    {
      "description": "Detailed visual description",
      "duration": 15,
      "environment": "INT. OFFICE - DAY",
      "camera_movements": ["medium shot", "close-up"],
      "dialogue": [
        {"character": "John", "text": "Hello", "emotion": "friendly", "non_verbal": ["smile"]}
      ],
      "sound_effects": ["door opening"],
      "human_sounds": ["sigh"],
      "music_mood": "uplifting"
    }
  ]
}

Script:
%s`

// Static analyzer errors.
var (
	// ErrNoScenesReturned indicates the model produced an empty breakdown.
	ErrNoScenesReturned = errors.New("analyzer returned no scenes")
	// ErrEmptyCompletion indicates the model produced no choices at all.
	ErrEmptyCompletion = errors.New("analyzer returned empty completion")
)

// Analyzer performs LLM-backed scene breakdown through an OpenAI-compatible
// chat-completions endpoint (DeepSeek in the reference deployment). It is an
// optional upgrade over the heuristic Parser; callers fall back to the parser
// on any analyzer error.
type Analyzer struct {
	client      *openai.Client
	model       string
	maxDuration int
}

// analyzerBreakdown mirrors the JSON document requested from the model.
type analyzerBreakdown struct {
	Scenes []core.Scene `json:"scenes"`
}

// NewAnalyzer creates an analyzer against the given OpenAI-compatible
// endpoint. An empty baseURL uses the upstream OpenAI API.
func NewAnalyzer(apiKey, baseURL, model string, maxSceneDuration int) *Analyzer {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if maxSceneDuration <= 0 {
		maxSceneDuration = core.MaxSceneDurationSeconds
	}

	return &Analyzer{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxDuration: maxSceneDuration,
	}
}

// BreakScript implements the script breakdown contract shared with Parser.
func (a *Analyzer) BreakScript(ctx context.Context, scriptText string, opts Options) ([]core.Scene, error) {
	return a.AnalyzeScript(ctx, scriptText, opts)
}

// AnalyzeScript asks the model for a scene breakdown and converts it into
// scene descriptors. Scenes come back in script order.
func (a *Analyzer) AnalyzeScript(ctx context.Context, scriptText string, opts Options) ([]core.Scene, error) {
	prompt := fmt.Sprintf(analyzerPromptTemplate, a.maxDuration, scriptText)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: analyzerTemperature,
		MaxTokens:   analyzerMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	scenes, err := parseBreakdown(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	for i := range scenes {
		applyAnalyzerDefaults(&scenes[i], opts, a.maxDuration)
	}

	return scenes, nil
}

// parseBreakdown decodes the model output, tolerating surrounding prose and
// markdown fences around the JSON document.
func parseBreakdown(content string) ([]core.Scene, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrNoScenesReturned)
	}

	var breakdown analyzerBreakdown

	err := json.Unmarshal([]byte(content[start:end+1]), &breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to decode analyzer output: %w", err)
	}

	if len(breakdown.Scenes) == 0 {
		return nil, ErrNoScenesReturned
	}

	return breakdown.Scenes, nil
}

// applyAnalyzerDefaults fills rendering hints and clamps model-provided
// durations into the accepted range.
func applyAnalyzerDefaults(scene *core.Scene, opts Options, maxDuration int) {
	if scene.Resolution == "" {
		scene.Resolution = opts.Resolution
	}

	if scene.FPS == 0 {
		scene.FPS = opts.FPS
	}

	if scene.Duration <= 0 {
		scene.Duration = minEstimatedDuration
	}

	if scene.Duration > maxDuration {
		scene.Duration = maxDuration
	}

	if scene.MusicMood == "" {
		scene.MusicMood = MoodFor(scene.Description)
	}

	if opts.Style != "" && scene.Description != "" {
		scene.Description += ", " + opts.Style + " style"
	}
}
