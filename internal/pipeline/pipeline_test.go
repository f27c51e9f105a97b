package pipeline_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinema-ai/cinema-service/internal/config"
	"github.com/cinema-ai/cinema-service/internal/core"
	"github.com/cinema-ai/cinema-service/internal/media"
	"github.com/cinema-ai/cinema-service/internal/pipeline"
)

var errEngineDown = errors.New("engine down")

type stubVideoGenerator struct {
	mu       sync.Mutex
	data     []byte
	err      error
	requests []core.VideoRequest
}

func (s *stubVideoGenerator) GenerateVideo(_ context.Context, req core.VideoRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	return s.data, s.err
}

type stubSpeechSynthesizer struct {
	mu       sync.Mutex
	data     []byte
	err      error
	requests []core.SpeechRequest
}

func (s *stubSpeechSynthesizer) Synthesize(_ context.Context, req core.SpeechRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	return s.data, s.err
}

type stubMusicGenerator struct {
	data []byte
	err  error
}

func (s *stubMusicGenerator) GenerateMusic(_ context.Context, _ core.AudioRequest) ([]byte, error) {
	return s.data, s.err
}

type stubEffectsGenerator struct {
	data []byte
	err  error
}

func (s *stubEffectsGenerator) GenerateEffect(_ context.Context, _ core.AudioRequest) ([]byte, error) {
	return s.data, s.err
}

type stubObjectStore struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	err      error
}

func newStubObjectStore() *stubObjectStore {
	return &stubObjectStore{
		mu:       sync.Mutex{},
		uploaded: make(map[string][]byte),
		err:      nil,
	}
}

func (s *stubObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uploaded[key], nil
}

func (s *stubObjectStore) Upload(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.uploaded[key] = data

	return nil
}

func (s *stubObjectStore) URL(key string) string {
	return "nats-obj://renders/" + key
}

type rendererFixture struct {
	video   *stubVideoGenerator
	speech  *stubSpeechSynthesizer
	music   *stubMusicGenerator
	effects *stubEffectsGenerator
	store   core.ObjectStore
	policy  string
}

func newRenderer(t *testing.T, fixture rendererFixture) *pipeline.Renderer {
	t.Helper()

	log, err := logger.New(t.TempDir(), "pipeline_test.log")
	require.NoError(t, err)

	opts := pipeline.Options{
		OutputDir:          t.TempDir(),
		TempDir:            t.TempDir(),
		Workers:            2,
		AudioFailurePolicy: fixture.policy,
		SceneTimeout:       0,
	}

	return pipeline.NewRenderer(
		fixture.video,
		fixture.speech,
		fixture.music,
		fixture.effects,
		media.NewCompositor(0, log),
		fixture.store,
		opts,
		log,
	)
}

func videoOnlyScene(duration int) core.Scene {
	return core.Scene{
		ID:          "",
		Description: "A ship sails into the harbor at dawn",
		Duration:    duration,
	}
}

func TestRenderScene_VideoOnlySuccess(t *testing.T) {
	t.Parallel()

	video := &stubVideoGenerator{data: []byte("mp4-bytes")}
	renderer := newRenderer(t, rendererFixture{
		video:   video,
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	result := renderer.RenderScene(context.Background(), videoOnlyScene(8))

	require.Equal(t, core.StatusSuccess, result.Status)
	assert.Equal(t, core.StageDone, result.Stage)
	assert.NotEmpty(t, result.SceneID)
	assert.Empty(t, result.OutputURL)
	assert.InDelta(t, 8.0, result.DurationSeconds, 0.001)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), data)

	require.Len(t, video.requests, 1)
	assert.Contains(t, video.requests[0].Prompt, "A ship sails into the harbor at dawn")
	assert.Contains(t, video.requests[0].Prompt, "cinematic, high quality")
	assert.Equal(t, 1280, video.requests[0].Width)
	assert.Equal(t, 720, video.requests[0].Height)
	assert.Equal(t, core.DefaultFPS, video.requests[0].FPS)
}

func TestRenderScene_VideoEngineFailure(t *testing.T) {
	t.Parallel()

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{err: errEngineDown},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	result := renderer.RenderScene(context.Background(), videoOnlyScene(8))

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Equal(t, core.StageGeneratingVideo, result.Stage)
	assert.Contains(t, result.Error, "engine down")
}

func TestRenderScene_InvalidScene(t *testing.T) {
	t.Parallel()

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	result := renderer.RenderScene(context.Background(), core.Scene{Description: "x", Duration: 0})

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Equal(t, core.StageReceived, result.Stage)
	assert.Contains(t, result.Error, "duration out of range")
}

func TestRenderScene_AudioFailureFailsScene(t *testing.T) {
	t.Parallel()

	scene := videoOnlyScene(8)
	scene.Dialogue = []core.DialogueLine{{Character: "ANNA", Text: "We sail at dawn."}}

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  &stubSpeechSynthesizer{err: errEngineDown},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
		policy:  config.AudioPolicyFailScene,
	})

	result := renderer.RenderScene(context.Background(), scene)

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Equal(t, core.StageGeneratingAudio, result.Stage)
	assert.Contains(t, result.Error, "dialogue line 1")
}

func TestRenderScene_AudioFailureVideoOnlyPolicy(t *testing.T) {
	t.Parallel()

	scene := videoOnlyScene(8)
	scene.Dialogue = []core.DialogueLine{{Character: "ANNA", Text: "We sail at dawn."}}

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  &stubSpeechSynthesizer{err: errEngineDown},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
		policy:  config.AudioPolicyVideoOnly,
	})

	result := renderer.RenderScene(context.Background(), scene)

	require.Equal(t, core.StatusSuccess, result.Status)
	assert.Empty(t, result.OutputURL)
	assert.FileExists(t, result.OutputPath)
}

func TestRenderScene_SpeechRequestWiring(t *testing.T) {
	t.Parallel()

	scene := videoOnlyScene(8)
	scene.Dialogue = []core.DialogueLine{
		{Character: "ANNA", Text: "We sail at dawn.", Emotion: "excited"},
		{Character: "MARCUS", Text: "Then we have tonight.", Emotion: "neutral"},
	}
	scene.VoiceCloneSamples = []string{"/voices/anna_sample.wav"}

	speech := &stubSpeechSynthesizer{data: []byte("wav")}

	// The mix step shells out to ffmpeg, which cannot process stub bytes,
	// so the lenient policy keeps the render on the video-only path.
	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  speech,
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
		policy:  config.AudioPolicyVideoOnly,
	})

	result := renderer.RenderScene(context.Background(), scene)

	require.Equal(t, core.StatusSuccess, result.Status)
	require.Len(t, speech.requests, 2)
	assert.Equal(t, "We sail at dawn.", speech.requests[0].Text)
	assert.Equal(t, "excited", speech.requests[0].Emotion)
	assert.Equal(t, "/voices/anna_sample.wav", speech.requests[0].SpeakerRefPath)
	assert.Empty(t, speech.requests[1].SpeakerRefPath)
}

func TestRenderScene_UploadsToObjectStore(t *testing.T) {
	t.Parallel()

	store := newStubObjectStore()
	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4-bytes")},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
		store:   store,
	})

	result := renderer.RenderScene(context.Background(), videoOnlyScene(8))

	require.Equal(t, core.StatusSuccess, result.Status)
	assert.Contains(t, result.OutputURL, "nats-obj://renders/renders/scene_")

	key := "renders/scene_" + result.SceneID + ".mp4"
	assert.Equal(t, []byte("mp4-bytes"), store.uploaded[key])
}

func TestRenderScene_UploadFailure(t *testing.T) {
	t.Parallel()

	store := newStubObjectStore()
	store.err = errEngineDown

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
		store:   store,
	})

	result := renderer.RenderScene(context.Background(), videoOnlyScene(8))

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Equal(t, core.StageStoring, result.Stage)
}

func TestRenderBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	scenes := []core.Scene{
		{ID: "scene-a", Description: "The first shot", Duration: 5},
		{ID: "scene-b", Description: "", Duration: 5},
		{ID: "scene-c", Description: "The last shot", Duration: 5},
	}

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{data: []byte("mp4")},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	results := renderer.RenderBatch(context.Background(), scenes)

	require.Len(t, results, 3)
	assert.Equal(t, "scene-a", results[0].SceneID)
	assert.Equal(t, core.StatusSuccess, results[0].Status)
	assert.Equal(t, core.StatusFailed, results[1].Status)
	assert.Equal(t, core.StageReceived, results[1].Stage)
	assert.Equal(t, "scene-c", results[2].SceneID)
	assert.Equal(t, core.StatusSuccess, results[2].Status)
}

func TestRenderMovie_EmptyScript(t *testing.T) {
	t.Parallel()

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	result := renderer.RenderMovie(context.Background(), nil)

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "no scenes to render")
}

func TestRenderMovie_SceneFailureFailsMovie(t *testing.T) {
	t.Parallel()

	scenes := []core.Scene{
		{ID: "scene-a", Description: "The first shot", Duration: 5},
	}

	renderer := newRenderer(t, rendererFixture{
		video:   &stubVideoGenerator{err: errEngineDown},
		speech:  &stubSpeechSynthesizer{},
		music:   &stubMusicGenerator{},
		effects: &stubEffectsGenerator{},
	})

	result := renderer.RenderMovie(context.Background(), scenes)

	require.Equal(t, core.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "scene 1 (scene-a) failed")
}

func TestLazy_BuildsOnce(t *testing.T) {
	t.Parallel()

	var calls int

	lazy := pipeline.NewLazy(func() (*pipeline.Renderer, error) {
		calls++

		return nil, errEngineDown
	})

	_, err := lazy.Get()
	require.ErrorIs(t, err, errEngineDown)

	_, err = lazy.Get()
	require.ErrorIs(t, err, errEngineDown)

	assert.Equal(t, 1, calls)
}
