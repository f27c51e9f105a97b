package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinema-ai/cinema-service/internal/core"
	"github.com/cinema-ai/cinema-service/internal/media"
	"github.com/cinema-ai/cinema-service/internal/pipeline"
	"github.com/cinema-ai/cinema-service/internal/request"
	"github.com/cinema-ai/cinema-service/internal/script"
	"github.com/cinema-ai/cinema-service/internal/server"
)

type stubVideoGenerator struct{}

func (s *stubVideoGenerator) GenerateVideo(_ context.Context, _ core.VideoRequest) ([]byte, error) {
	return []byte("mp4"), nil
}

type stubSpeechSynthesizer struct{}

func (s *stubSpeechSynthesizer) Synthesize(_ context.Context, _ core.SpeechRequest) ([]byte, error) {
	return []byte("wav"), nil
}

type stubMusicGenerator struct{}

func (s *stubMusicGenerator) GenerateMusic(_ context.Context, _ core.AudioRequest) ([]byte, error) {
	return []byte("wav"), nil
}

type stubEffectsGenerator struct{}

func (s *stubEffectsGenerator) GenerateEffect(_ context.Context, _ core.AudioRequest) ([]byte, error) {
	return []byte("wav"), nil
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	log, err := logger.New(t.TempDir(), "server_test.log")
	require.NoError(t, err)

	outputDir := t.TempDir()
	tempDir := t.TempDir()

	lazy := pipeline.NewLazy(func() (*pipeline.Renderer, error) {
		opts := pipeline.Options{
			OutputDir:          outputDir,
			TempDir:            tempDir,
			Workers:            2,
			AudioFailurePolicy: "",
			SceneTimeout:       0,
		}

		return pipeline.NewRenderer(
			&stubVideoGenerator{},
			&stubSpeechSynthesizer{},
			&stubMusicGenerator{},
			&stubEffectsGenerator{},
			media.NewCompositor(0, log),
			nil,
			opts,
			log,
		), nil
	})

	router := request.NewRouter(lazy, script.NewParser(0), "1.0.0", log)

	return server.New(router, log)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment to come up before asking it to stop.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, server.HealthPath, nil)

	srv.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var health request.HealthResponse

	err := json.Unmarshal(recorder.Body.Bytes(), &health)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, request.ServiceName, health.Service)
}

func TestRunEndpoint_SingleScene(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	payload := `{"input":{"type":"single_scene","scene":{"description":"A desert at noon","duration":5}}}`

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, server.RunPath, strings.NewReader(payload))

	srv.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var result core.RenderResult

	err := json.Unmarshal(recorder.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSuccess, result.Status)
	assert.NotEmpty(t, result.OutputPath)
}

func TestRunEndpoint_ValidationError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	payload := `{"input":{"type":"single_scene"}}`

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, server.RunPath, strings.NewReader(payload))

	srv.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var body request.ErrorBody

	err := json.Unmarshal(recorder.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, request.KindValidationError, body.Err.Kind)
}

func TestRunEndpoint_UnknownRequestType(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	payload := `{"input":{"type":"teleport"}}`

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, server.RunPath, strings.NewReader(payload))

	srv.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var body request.ErrorBody

	err := json.Unmarshal(recorder.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, request.KindUnknownRequestType, body.Err.Kind)
	assert.Contains(t, body.Err.Message, "teleport")
}
