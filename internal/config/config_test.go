// Package config_test tests the configuration loading for the cinema-service.
package config_test

import (
	"testing"

	"github.com/cinema-ai/cinema-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigUnmarshal(t *testing.T) {
	t.Parallel()

	tomlData := `
[http]
host = "0.0.0.0"
port = 8090

[nats]
url = "nats://127.0.0.1:4222"
render_subject = "cinema.render"
artifact_store_bucket = "RENDERED_SCENES"

[video_engine]
backend = "http"
base_url = "http://localhost:8001"
timeout_seconds = 600

[speech_engine]
base_url = "http://localhost:8002"
timeout_seconds = 120
language = "en"
temperature = 0.75

[music_engine]
base_url = "http://localhost:8003"
timeout_seconds = 180

[effects_engine]
base_url = "http://localhost:8004"
timeout_seconds = 60

[script]
analyzer_base_url = "https://api.deepseek.com/v1"
analyzer_model = "deepseek-chat"
max_scene_duration_seconds = 30

[pipeline]
output_dir = "/var/cinema/output"
temp_dir = "/var/cinema/tmp"
workers = 4
audio_failure_policy = "video_only"
music_volume = 0.25

[paths]
base_logs_dir = "/var/log/cinema"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8090, cfg.HTTP.Port)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "cinema.render", cfg.NATS.RenderSubject)
	assert.Equal(t, "RENDERED_SCENES", cfg.NATS.ArtifactStoreBucket)
	assert.Equal(t, config.VideoBackendHTTP, cfg.Video.Backend)
	assert.Equal(t, "http://localhost:8001", cfg.Video.BaseURL)
	assert.Equal(t, 600, cfg.Video.TimeoutSeconds)
	assert.Equal(t, "http://localhost:8002", cfg.Speech.BaseURL)
	assert.InEpsilon(t, 0.75, cfg.Speech.Temperature, 0.001)
	assert.Equal(t, "http://localhost:8003", cfg.Music.BaseURL)
	assert.Equal(t, "http://localhost:8004", cfg.Effects.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.Script.AnalyzerModel)
	assert.Equal(t, 30, cfg.Script.MaxSceneDurationSecs)
	assert.Equal(t, "/var/cinema/output", cfg.Pipeline.OutputDir)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, config.AudioPolicyVideoOnly, cfg.Pipeline.AudioFailurePolicy)
	assert.InEpsilon(t, 0.25, cfg.Pipeline.MusicVolume, 0.001)
	assert.Equal(t, "/var/log/cinema", cfg.Paths.BaseLogsDir)
}
