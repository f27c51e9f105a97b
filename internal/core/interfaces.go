package core

import "context"

// VideoRequest carries the parameters for one video generation call.
type VideoRequest struct {
	Prompt          string
	DurationSeconds int
	FPS             int
	Width           int
	Height          int
}

// SpeechRequest carries the parameters for one voice synthesis call. A
// non-empty SpeakerRefPath conditions synthesis on a voice-clone sample.
type SpeechRequest struct {
	Text           string
	Language       string
	Emotion        string
	SpeakerRefPath string
	Temperature    float64
}

// AudioRequest carries the parameters for a music or sound-effect call.
type AudioRequest struct {
	Prompt          string
	DurationSeconds int
}

// VideoGenerator produces a video clip for a scene prompt.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) ([]byte, error)
}

// SpeechSynthesizer produces one spoken audio clip per dialogue line.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// MusicGenerator produces a background music track.
type MusicGenerator interface {
	GenerateMusic(ctx context.Context, req AudioRequest) ([]byte, error)
}

// EffectsGenerator produces a single sound-effect clip.
type EffectsGenerator interface {
	GenerateEffect(ctx context.Context, req AudioRequest) ([]byte, error)
}

// ObjectStore is a key-value blob store for rendered artifacts.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	// URL returns the stable address of a stored key.
	URL(key string) string
}
