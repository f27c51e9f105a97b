// Package config provides the configuration structure for the cinema-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Audio-failure policies for a scene whose audio generation fails.
const (
	AudioPolicyFailScene = "fail_scene"
	AudioPolicyVideoOnly = "video_only"
)

// Video backends.
const (
	VideoBackendHTTP = "http"
	VideoBackendVeo  = "veo"
)

// HTTPConfig holds the configuration for the HTTP surface.
type HTTPConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// NATSConfig holds the configuration for the optional NATS surfaces. An empty
// URL disables both the render worker and the artifact object store.
type NATSConfig struct {
	URL                 string `toml:"url"`
	RenderSubject       string `toml:"render_subject"`
	ArtifactStoreBucket string `toml:"artifact_store_bucket"`
}

// EngineConfig holds the connection settings for one HTTP model engine.
type EngineConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VideoConfig selects and configures the video generation backend.
type VideoConfig struct {
	Backend        string `toml:"backend"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VeoConfig holds the settings for the Google Veo video backend.
type VeoConfig struct {
	Model        string `toml:"model"`
	APIKey       string `toml:"api_key"`
	ProjectID    string `toml:"project_id"`
	Location     string `toml:"location"`
	PollSeconds  int    `toml:"poll_seconds"`
	AspectRatio  string `toml:"aspect_ratio"`
	PersonPolicy string `toml:"person_policy"`
}

// SpeechConfig holds the voice synthesis engine settings.
type SpeechConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Language       string  `toml:"language"`
	Temperature    float64 `toml:"temperature"`
}

// ScriptConfig holds the optional LLM script analyzer settings. An empty API
// key disables the analyzer and the heuristic parser is used alone.
type ScriptConfig struct {
	AnalyzerBaseURL      string `toml:"analyzer_base_url"`
	AnalyzerModel        string `toml:"analyzer_model"`
	AnalyzerAPIKey       string `toml:"analyzer_api_key"`
	MaxSceneDurationSecs int    `toml:"max_scene_duration_seconds"`
}

// PipelineConfig holds the orchestration settings.
type PipelineConfig struct {
	OutputDir          string  `toml:"output_dir"`
	TempDir            string  `toml:"temp_dir"`
	Workers            int     `toml:"workers"`
	AudioFailurePolicy string  `toml:"audio_failure_policy"`
	MusicVolume        float64 `toml:"music_volume"`
	SceneTimeoutSecs   int     `toml:"scene_timeout_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	HTTP     HTTPConfig     `toml:"http"`
	NATS     NATSConfig     `toml:"nats"`
	Video    VideoConfig    `toml:"video_engine"`
	Veo      VeoConfig      `toml:"veo"`
	Speech   SpeechConfig   `toml:"speech_engine"`
	Music    EngineConfig   `toml:"music_engine"`
	Effects  EngineConfig   `toml:"effects_engine"`
	Script   ScriptConfig   `toml:"script"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Paths    PathsConfig    `toml:"paths"`
}

// Load loads the configuration for the cinema-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills settings that deployments rarely override.
func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}

	if c.Video.Backend == "" {
		c.Video.Backend = VideoBackendHTTP
	}

	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 2
	}

	if c.Pipeline.AudioFailurePolicy == "" {
		c.Pipeline.AudioFailurePolicy = AudioPolicyFailScene
	}

	if c.Pipeline.MusicVolume == 0 {
		c.Pipeline.MusicVolume = 0.3
	}

	if c.Pipeline.SceneTimeoutSecs == 0 {
		c.Pipeline.SceneTimeoutSecs = 600
	}

	if c.Script.MaxSceneDurationSecs == 0 {
		c.Script.MaxSceneDurationSecs = 30
	}

	if c.Speech.Language == "" {
		c.Speech.Language = "en"
	}
}
