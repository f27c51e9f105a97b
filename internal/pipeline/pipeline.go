// Package pipeline orchestrates the full render of a scene: video generation,
// per-line speech synthesis, music and sound-effect generation, audio mixing
// and final muxing into one MP4 per scene.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/cinema-ai/cinema-service/internal/config"
	"github.com/cinema-ai/cinema-service/internal/core"
	"github.com/cinema-ai/cinema-service/internal/media"
	"github.com/cinema-ai/cinema-service/internal/script"
)

// Filesystem permissions for render artifacts.
const (
	dirPermissions  = 0o755
	filePermissions = 0o600
)

// Prompt formats for the audio engines.
const (
	effectPromptFormat     = "high quality %s sound effect, clear, realistic"
	humanSoundPromptFormat = "%s, realistic human sound"
)

// Rendering defaults.
const (
	// DefaultWorkers is the batch pool size used when none is configured.
	DefaultWorkers = 2

	// effectDurationSeconds caps individual effect clips; the mix trims to
	// the scene duration anyway.
	effectDurationSeconds = 5
)

// ErrNoScenes indicates a movie render request with an empty scene list.
var ErrNoScenes = errors.New("no scenes to render")

// Options tunes the renderer.
type Options struct {
	OutputDir          string
	TempDir            string
	Workers            int
	AudioFailurePolicy string
	SceneTimeout       time.Duration
	SpeechLanguage     string
	SpeechTemperature  float64
}

// Renderer runs the per-scene render state machine against a set of
// generation engines and a media compositor.
type Renderer struct {
	video      core.VideoGenerator
	speech     core.SpeechSynthesizer
	music      core.MusicGenerator
	effects    core.EffectsGenerator
	compositor *media.Compositor
	store      core.ObjectStore
	opts       Options
	log        *logger.Logger
}

// NewRenderer creates a renderer. The object store may be nil, in which case
// results carry local paths only.
func NewRenderer(
	video core.VideoGenerator,
	speech core.SpeechSynthesizer,
	music core.MusicGenerator,
	effects core.EffectsGenerator,
	compositor *media.Compositor,
	store core.ObjectStore,
	opts Options,
	log *logger.Logger,
) *Renderer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	return &Renderer{
		video:      video,
		speech:     speech,
		music:      music,
		effects:    effects,
		compositor: compositor,
		store:      store,
		opts:       opts,
		log:        log,
	}
}

// RenderScene renders one scene end to end and reports the outcome. Failures
// are captured in the result rather than returned, so batch rendering can
// aggregate per-scene outcomes.
func (r *Renderer) RenderScene(ctx context.Context, scene core.Scene) core.RenderResult {
	start := time.Now()

	scene.ApplyDefaults()

	err := scene.Validate()
	if err != nil {
		return failure(scene.ID, core.StageReceived, start, err)
	}

	if r.opts.SceneTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.opts.SceneTimeout)
		defer cancel()
	}

	workDir := filepath.Join(r.opts.TempDir, scene.ID)

	err = os.MkdirAll(workDir, dirPermissions)
	if err != nil {
		return failure(scene.ID, core.StageReceived, start, err)
	}

	defer r.removeAll(workDir)

	r.log.Info("Rendering scene %s: %q (%ds)", scene.ID, firstChars(scene.Description, 60), scene.Duration)

	videoPath, err := r.generateVideo(ctx, scene, workDir)
	if err != nil {
		return failure(scene.ID, core.StageGeneratingVideo, start, err)
	}

	mixedPath, result := r.renderAudio(ctx, scene, workDir, start)
	if result != nil {
		return *result
	}

	err = os.MkdirAll(r.opts.OutputDir, dirPermissions)
	if err != nil {
		return failure(scene.ID, core.StageMuxing, start, err)
	}

	outputPath := filepath.Join(r.opts.OutputDir, "scene_"+scene.ID+".mp4")

	if mixedPath != "" {
		err = r.compositor.Mux(ctx, videoPath, mixedPath, outputPath)
	} else {
		err = copyFile(videoPath, outputPath)
	}

	if err != nil {
		return failure(scene.ID, core.StageMuxing, start, err)
	}

	return r.finalize(ctx, scene.ID, outputPath, float64(scene.Duration), start)
}

// RenderBatch renders scenes concurrently over a worker pool. Results are
// returned in input order; one failed scene never aborts the others.
func (r *Renderer) RenderBatch(ctx context.Context, scenes []core.Scene) []core.RenderResult {
	results := make([]core.RenderResult, len(scenes))

	pool, err := ants.NewPool(r.opts.Workers)
	if err != nil {
		r.log.Warn("Failed to create worker pool, rendering sequentially: %v", err)

		for i := range scenes {
			results[i] = r.RenderScene(ctx, scenes[i])
		}

		return results
	}

	defer pool.Release()

	var wg sync.WaitGroup

	for i := range scenes {
		wg.Add(1)

		index := i

		submitErr := pool.Submit(func() {
			defer wg.Done()

			results[index] = r.RenderScene(ctx, scenes[index])
		})
		if submitErr != nil {
			wg.Done()

			results[index] = failure(scenes[index].ID, core.StageReceived, time.Now(), submitErr)
		}
	}

	wg.Wait()

	return results
}

// RenderMovie renders every scene and concatenates the outputs, in scene
// order, into a single movie file. Any scene failure fails the movie.
func (r *Renderer) RenderMovie(ctx context.Context, scenes []core.Scene) core.RenderResult {
	start := time.Now()
	movieID := uuid.NewString()

	if len(scenes) == 0 {
		return failure(movieID, core.StageReceived, start, ErrNoScenes)
	}

	results := r.RenderBatch(ctx, scenes)

	scenePaths := make([]string, 0, len(results))

	for i, res := range results {
		if res.Status != core.StatusSuccess {
			err := fmt.Errorf("scene %d (%s) failed at stage %s: %s", i+1, res.SceneID, res.Stage, res.Error)

			return failure(movieID, res.Stage, start, err)
		}

		scenePaths = append(scenePaths, res.OutputPath)
	}

	outputPath := filepath.Join(r.opts.OutputDir, "movie_"+movieID+".mp4")

	err := r.compositor.ConcatVideos(ctx, scenePaths, outputPath)
	if err != nil {
		return failure(movieID, core.StageMuxing, start, err)
	}

	var total float64
	for _, res := range results {
		total += res.DurationSeconds
	}

	return r.finalize(ctx, movieID, outputPath, total, start)
}

// generateVideo calls the video engine and writes the clip into the scene
// working directory.
func (r *Renderer) generateVideo(ctx context.Context, scene core.Scene, workDir string) (string, error) {
	width, height := scene.Resolution.Dimensions()

	data, err := r.video.GenerateVideo(ctx, core.VideoRequest{
		Prompt:          scene.VideoPrompt(),
		DurationSeconds: scene.Duration,
		FPS:             scene.FPS,
		Width:           width,
		Height:          height,
	})
	if err != nil {
		return "", err
	}

	videoPath := filepath.Join(workDir, "video.mp4")

	err = os.WriteFile(videoPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write video clip: %w", err)
	}

	return videoPath, nil
}

// renderAudio generates and mixes every audio element of the scene. It
// returns the mixed track path, or a terminal failure result when audio
// cannot be produced and the policy demands failing the scene. An empty path
// with a nil result means video-only output.
func (r *Renderer) renderAudio(
	ctx context.Context,
	scene core.Scene,
	workDir string,
	start time.Time,
) (string, *core.RenderResult) {
	if !scene.HasAudio() {
		return "", nil
	}

	inputs, err := r.generateAudio(ctx, scene, workDir)
	if err != nil {
		if r.opts.AudioFailurePolicy == config.AudioPolicyVideoOnly {
			r.log.Warn("Audio generation failed for scene %s, rendering video only: %v", scene.ID, err)

			return "", nil
		}

		res := failure(scene.ID, core.StageGeneratingAudio, start, err)

		return "", &res
	}

	mixedPath := filepath.Join(workDir, "mixed.wav")

	err = r.compositor.MixAudio(ctx, inputs, scene.Duration, mixedPath)
	if err != nil {
		if r.opts.AudioFailurePolicy == config.AudioPolicyVideoOnly {
			r.log.Warn("Audio mix failed for scene %s, rendering video only: %v", scene.ID, err)

			return "", nil
		}

		res := failure(scene.ID, core.StageMixing, start, err)

		return "", &res
	}

	return mixedPath, nil
}

// generateAudio produces every audio clip of the scene: speech per dialogue
// line in order, an optional music bed, then effect and human-sound clips.
func (r *Renderer) generateAudio(ctx context.Context, scene core.Scene, workDir string) (media.MixInputs, error) {
	var inputs media.MixInputs

	for i, line := range scene.Dialogue {
		clip, err := r.speech.Synthesize(ctx, core.SpeechRequest{
			Text:           line.Text,
			Language:       r.opts.SpeechLanguage,
			Emotion:        line.Emotion,
			SpeakerRefPath: scene.VoiceSampleFor(line.Character),
			Temperature:    r.opts.SpeechTemperature,
		})
		if err != nil {
			return inputs, fmt.Errorf("dialogue line %d: %w", i+1, err)
		}

		path := filepath.Join(workDir, fmt.Sprintf("dialogue_%02d.wav", i))

		err = os.WriteFile(path, clip, filePermissions)
		if err != nil {
			return inputs, fmt.Errorf("failed to write dialogue clip %d: %w", i+1, err)
		}

		inputs.DialoguePaths = append(inputs.DialoguePaths, path)
	}

	if scene.MusicMood != "" {
		clip, err := r.music.GenerateMusic(ctx, core.AudioRequest{
			Prompt:          script.MusicPrompt(scene.MusicMood),
			DurationSeconds: scene.Duration,
		})
		if err != nil {
			return inputs, fmt.Errorf("music: %w", err)
		}

		path := filepath.Join(workDir, "music.wav")

		err = os.WriteFile(path, clip, filePermissions)
		if err != nil {
			return inputs, fmt.Errorf("failed to write music clip: %w", err)
		}

		inputs.MusicPath = path
	}

	for i, effect := range scene.SoundEffects {
		path, err := r.generateEffect(ctx, fmt.Sprintf(effectPromptFormat, effect),
			filepath.Join(workDir, fmt.Sprintf("sfx_%02d.wav", i)), scene.Duration)
		if err != nil {
			return inputs, fmt.Errorf("sound effect %q: %w", effect, err)
		}

		inputs.EffectPaths = append(inputs.EffectPaths, path)
	}

	for i, sound := range scene.HumanSounds {
		path, err := r.generateEffect(ctx, fmt.Sprintf(humanSoundPromptFormat, sound),
			filepath.Join(workDir, fmt.Sprintf("human_%02d.wav", i)), scene.Duration)
		if err != nil {
			return inputs, fmt.Errorf("human sound %q: %w", sound, err)
		}

		inputs.EffectPaths = append(inputs.EffectPaths, path)
	}

	return inputs, nil
}

// generateEffect renders one clip through the effects engine and writes it to
// path.
func (r *Renderer) generateEffect(ctx context.Context, prompt, path string, sceneDuration int) (string, error) {
	duration := effectDurationSeconds
	if sceneDuration < duration {
		duration = sceneDuration
	}

	clip, err := r.effects.GenerateEffect(ctx, core.AudioRequest{
		Prompt:          prompt,
		DurationSeconds: duration,
	})
	if err != nil {
		return "", err
	}

	err = os.WriteFile(path, clip, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write effect clip: %w", err)
	}

	return path, nil
}

// finalize probes the finished file, uploads it when a store is configured
// and builds the success result.
func (r *Renderer) finalize(ctx context.Context, id, outputPath string, fallbackDuration float64, start time.Time) core.RenderResult {
	duration, err := r.compositor.ProbeDuration(ctx, outputPath)
	if err != nil {
		r.log.Warn("Failed to probe duration of '%s': %v", outputPath, err)

		duration = fallbackDuration
	}

	result := core.RenderResult{
		SceneID:           id,
		Status:            core.StatusSuccess,
		OutputPath:        outputPath,
		DurationSeconds:   duration,
		ProcessingSeconds: time.Since(start).Seconds(),
		Stage:             core.StageDone,
	}

	if r.store == nil {
		return result
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return failure(id, core.StageStoring, start, err)
	}

	key := "renders/" + filepath.Base(outputPath)

	err = r.store.Upload(ctx, key, data)
	if err != nil {
		return failure(id, core.StageStoring, start, err)
	}

	result.OutputURL = r.store.URL(key)
	result.ProcessingSeconds = time.Since(start).Seconds()

	return result
}

// removeAll clears a scene working directory, logging rather than failing on
// cleanup errors.
func (r *Renderer) removeAll(dir string) {
	removeErr := os.RemoveAll(dir)
	if removeErr != nil {
		r.log.Warn("Failed to remove work dir '%s': %v", dir, removeErr)
	}
}

// failure builds a failed result for the given stage.
func failure(sceneID, stage string, start time.Time, err error) core.RenderResult {
	return core.RenderResult{
		SceneID:           sceneID,
		Status:            core.StatusFailed,
		ProcessingSeconds: time.Since(start).Seconds(),
		Stage:             stage,
		Error:             err.Error(),
	}
}

// copyFile copies src to dst. Used for video-only scenes where no mux pass
// touches the clip.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", dst, err)
	}

	_, err = io.Copy(out, in)
	if err != nil {
		_ = out.Close()

		return fmt.Errorf("failed to copy to '%s': %w", dst, err)
	}

	err = out.Close()
	if err != nil {
		return fmt.Errorf("failed to close '%s': %w", dst, err)
	}

	return nil
}

// firstChars truncates s for log lines.
func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
