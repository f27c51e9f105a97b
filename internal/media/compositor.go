// Package media composites generated assets with ffmpeg: it mixes dialogue,
// music and effect clips onto one audio timeline, muxes the mixed track with
// the generated video, and concatenates rendered scenes into a final movie.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
)

// Mixing defaults.
const (
	// DefaultMusicVolume is the background-bed attenuation applied to music
	// so dialogue stays intelligible.
	DefaultMusicVolume = 0.3

	audioCodecArgs = "pcm_s16le"
)

// Static errors.
var (
	// ErrNoAudioInputs indicates a mix request without any clip.
	ErrNoAudioInputs = errors.New("no audio inputs to mix")
	// ErrNoVideosToConcat indicates a concat request without any video.
	ErrNoVideosToConcat = errors.New("no videos to concatenate")
)

// MixInputs lists the audio clips of one scene. DialoguePaths order is
// playback order and is preserved in the mixed timeline.
type MixInputs struct {
	DialoguePaths []string
	MusicPath     string
	EffectPaths   []string
}

// empty reports whether there is nothing to mix.
func (m MixInputs) empty() bool {
	return len(m.DialoguePaths) == 0 && m.MusicPath == "" && len(m.EffectPaths) == 0
}

// Compositor drives ffmpeg and ffprobe for all media composition steps.
type Compositor struct {
	musicVolume float64
	log         *logger.Logger
}

// NewCompositor creates a compositor. A zero musicVolume selects the default
// background attenuation.
func NewCompositor(musicVolume float64, log *logger.Logger) *Compositor {
	if musicVolume <= 0 {
		musicVolume = DefaultMusicVolume
	}

	return &Compositor{
		musicVolume: musicVolume,
		log:         log,
	}
}

// MixAudio renders all scene audio onto one WAV timeline of the scene
// duration: dialogue clips back to back in order, the music bed attenuated
// underneath, effects overlaid.
func (c *Compositor) MixAudio(ctx context.Context, inputs MixInputs, durationSeconds int, outputPath string) error {
	if inputs.empty() {
		return ErrNoAudioInputs
	}

	args := mixArgs(inputs, durationSeconds, c.musicVolume, outputPath)

	return c.runFFmpeg(ctx, args)
}

// Mux combines a video file and a mixed audio file into one MP4. The video
// stream is copied untouched; audio is encoded to AAC.
func (c *Compositor) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outputPath,
	}

	return c.runFFmpeg(ctx, args)
}

// ConcatVideos joins rendered scene files, in order, into one MP4 without
// re-encoding.
func (c *Compositor) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	if len(videoPaths) == 0 {
		return ErrNoVideosToConcat
	}

	listPath, err := writeConcatList(videoPaths, filepath.Dir(outputPath))
	if err != nil {
		return err
	}

	defer func() {
		removeErr := os.Remove(listPath)
		if removeErr != nil {
			c.log.Warn("Failed to remove concat list '%s': %v", listPath, removeErr)
		}
	}()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}

	return c.runFFmpeg(ctx, args)
}

// ProbeDuration returns the container duration of a media file in seconds.
func (c *Compositor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for '%s': %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration: %w", err)
	}

	return duration, nil
}

// runFFmpeg executes ffmpeg with the given arguments, preserving tool output
// in the error for diagnostics.
func (c *Compositor) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w - output: %s", err, string(output))
	}

	return nil
}

// mixArgs builds the full ffmpeg argument list for one mix. Input order on
// the command line is dialogue clips, then music, then effects; the filter
// graph concatenates dialogue, attenuates music and amixes everything.
func mixArgs(inputs MixInputs, durationSeconds int, musicVolume float64, outputPath string) []string {
	args := []string{"-y"}

	for _, p := range inputs.DialoguePaths {
		args = append(args, "-i", p)
	}

	if inputs.MusicPath != "" {
		args = append(args, "-i", inputs.MusicPath)
	}

	for _, p := range inputs.EffectPaths {
		args = append(args, "-i", p)
	}

	args = append(args, "-filter_complex", mixFilter(inputs, musicVolume))
	args = append(args, "-map", "[out]")

	if durationSeconds > 0 {
		args = append(args, "-t", strconv.Itoa(durationSeconds))
	}

	args = append(args, "-c:a", audioCodecArgs, outputPath)

	return args
}

// mixFilter builds the filter_complex graph for one mix.
func mixFilter(inputs MixInputs, musicVolume float64) string {
	var (
		parts     []string
		mixLabels []string
		index     int
	)

	switch n := len(inputs.DialoguePaths); {
	case n == 1:
		parts = append(parts, fmt.Sprintf("[%d:a]anull[dlg]", index))
		mixLabels = append(mixLabels, "[dlg]")
		index++
	case n > 1:
		var concatIn strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&concatIn, "[%d:a]", index+i)
		}

		parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[dlg]", concatIn.String(), n))
		mixLabels = append(mixLabels, "[dlg]")
		index += n
	}

	if inputs.MusicPath != "" {
		parts = append(parts, fmt.Sprintf("[%d:a]volume=%.2f[mus]", index, musicVolume))
		mixLabels = append(mixLabels, "[mus]")
		index++
	}

	for i := range inputs.EffectPaths {
		label := fmt.Sprintf("[sfx%d]", i)
		parts = append(parts, fmt.Sprintf("[%d:a]anull%s", index, label))
		mixLabels = append(mixLabels, label)
		index++
	}

	if len(mixLabels) == 1 {
		parts = append(parts, mixLabels[0]+"apad[out]")
	} else {
		parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0[mixed]",
			strings.Join(mixLabels, ""), len(mixLabels)))
		parts = append(parts, "[mixed]apad[out]")
	}

	return strings.Join(parts, ";")
}

// writeConcatList writes the ffmpeg concat demuxer list to a uniquely named
// file next to the output and returns its path. The name must be unique so
// concurrent movie renders sharing an output directory cannot clobber each
// other's lists.
func writeConcatList(videoPaths []string, dir string) (string, error) {
	var b strings.Builder

	for _, p := range videoPaths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path '%s': %w", p, err)
		}

		fmt.Fprintf(&b, "file '%s'\n", absPath)
	}

	listFile, err := os.CreateTemp(dir, "concat_list_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}

	_, err = listFile.WriteString(b.String())
	if err != nil {
		_ = listFile.Close()

		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	err = listFile.Close()
	if err != nil {
		return "", fmt.Errorf("failed to close concat list: %w", err)
	}

	return listFile.Name(), nil
}
