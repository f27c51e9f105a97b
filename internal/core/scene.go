// Package core defines the domain types and interfaces for the cinema render
// service. A Scene is the unit of generation: one video clip plus its dialogue,
// music and sound-effect tracks, merged into a single output file.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Accepted scene duration range, in seconds.
const (
	MinSceneDurationSeconds = 1
	MaxSceneDurationSeconds = 60
)

// Defaults applied to scenes that omit optional fields.
const (
	DefaultResolution = Resolution720p
	DefaultFPS        = 30
)

// Static validation errors.
var (
	// ErrDescriptionRequired indicates a scene without a textual description.
	ErrDescriptionRequired = errors.New("scene description is required")
	// ErrDurationRange indicates a scene duration outside the accepted range.
	ErrDurationRange = errors.New("scene duration out of range")
	// ErrUnknownResolution indicates a resolution outside the enumerated set.
	ErrUnknownResolution = errors.New("unknown resolution")
	// ErrDialogueTextEmpty indicates a dialogue line with no text.
	ErrDialogueTextEmpty = errors.New("dialogue line text cannot be empty")
)

// Resolution is one of the enumerated output resolutions.
type Resolution string

// Supported output resolutions.
const (
	Resolution480p  Resolution = "480p"
	Resolution540p  Resolution = "540p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// Dimensions returns the pixel width and height for the resolution.
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Resolution480p:
		return 848, 480
	case Resolution540p:
		return 960, 540
	case Resolution720p:
		return 1280, 720
	case Resolution1080p:
		return 1920, 1080
	case Resolution4K:
		return 3840, 2160
	default:
		return 1280, 720
	}
}

// valid reports whether the resolution belongs to the enumerated set.
func (r Resolution) valid() bool {
	switch r {
	case Resolution480p, Resolution540p, Resolution720p, Resolution1080p, Resolution4K:
		return true
	default:
		return false
	}
}

// DialogueLine is one spoken line within a scene. Order within the scene is
// playback order and must be preserved through synthesis and mixing.
type DialogueLine struct {
	Character string   `json:"character"`
	Text      string   `json:"text"`
	Emotion   string   `json:"emotion,omitempty"`
	NonVerbal []string `json:"non_verbal,omitempty"`
}

// Scene describes one discrete unit of video and audio generation.
type Scene struct {
	ID                string         `json:"id,omitempty"`
	Description       string         `json:"description"`
	Duration          int            `json:"duration"`
	Resolution        Resolution     `json:"resolution,omitempty"`
	FPS               int            `json:"fps,omitempty"`
	Environment       string         `json:"environment,omitempty"`
	CameraMovements   []string       `json:"camera_movements,omitempty"`
	Dialogue          []DialogueLine `json:"dialogue,omitempty"`
	MusicMood         string         `json:"music_mood,omitempty"`
	SoundEffects      []string       `json:"sound_effects,omitempty"`
	VoiceCloneSamples []string       `json:"voice_clone_samples,omitempty"`
	HumanSounds       []string       `json:"human_sounds,omitempty"`
}

// ApplyDefaults fills optional fields that generation requires: a unique ID,
// the default resolution and frame rate.
func (s *Scene) ApplyDefaults() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	if s.Resolution == "" {
		s.Resolution = DefaultResolution
	}

	if s.FPS == 0 {
		s.FPS = DefaultFPS
	}
}

// Validate performs shallow presence, range and enum checks. It does not
// inspect the semantic quality of the description or dialogue.
func (s *Scene) Validate() error {
	if strings.TrimSpace(s.Description) == "" {
		return ErrDescriptionRequired
	}

	if s.Duration < MinSceneDurationSeconds || s.Duration > MaxSceneDurationSeconds {
		return fmt.Errorf("%w: got %d, accepted %d-%d seconds",
			ErrDurationRange, s.Duration, MinSceneDurationSeconds, MaxSceneDurationSeconds)
	}

	if s.Resolution != "" && !s.Resolution.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownResolution, s.Resolution)
	}

	for i, line := range s.Dialogue {
		if strings.TrimSpace(line.Text) == "" {
			return fmt.Errorf("%w: line %d", ErrDialogueTextEmpty, i+1)
		}
	}

	return nil
}

// VideoPrompt builds the prompt handed to the video engine: the description
// enriched with camera, environment and cinematic quality hints.
func (s *Scene) VideoPrompt() string {
	var b strings.Builder

	b.WriteString(s.Description)

	if len(s.CameraMovements) > 0 {
		b.WriteString(", camera: ")
		b.WriteString(strings.Join(s.CameraMovements, ", "))
	}

	if s.Environment != "" {
		b.WriteString(", environment: ")
		b.WriteString(s.Environment)
	}

	b.WriteString(", cinematic, high quality, professional, realistic lighting")

	return b.String()
}

// VoiceSampleFor returns the voice-clone sample path whose name mentions the
// character, or the empty string when no sample matches.
func (s *Scene) VoiceSampleFor(character string) string {
	if character == "" {
		return ""
	}

	lowered := strings.ToLower(character)

	for _, sample := range s.VoiceCloneSamples {
		if strings.Contains(strings.ToLower(sample), lowered) {
			return sample
		}
	}

	return ""
}

// HasAudio reports whether the scene requests any audio element at all.
// A scene without audio still renders video-only output.
func (s *Scene) HasAudio() bool {
	return len(s.Dialogue) > 0 || s.MusicMood != "" ||
		len(s.SoundEffects) > 0 || len(s.HumanSounds) > 0
}
