package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func veoOperation(video *genai.Video) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: video}},
		},
	}
}

func TestExtractVideo_InlineBytes(t *testing.T) {
	t.Parallel()

	engine := &VeoEngine{}

	data, err := engine.extractVideo(context.Background(), veoOperation(&genai.Video{
		VideoBytes: []byte("mp4"),
	}))
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4"), data)
}

func TestExtractVideo_NoVideo(t *testing.T) {
	t.Parallel()

	engine := &VeoEngine{}

	_, err := engine.extractVideo(context.Background(), &genai.GenerateVideosOperation{Done: true})
	require.ErrorIs(t, err, ErrVeoNoVideo)
}

func TestExtractVideo_NoBytesOrURI(t *testing.T) {
	t.Parallel()

	engine := &VeoEngine{}

	_, err := engine.extractVideo(context.Background(), veoOperation(&genai.Video{}))
	require.ErrorIs(t, err, ErrVeoEmptyBytes)
}

func TestExtractVideo_VertexURIFallsBackToDownload(t *testing.T) {
	t.Parallel()

	engine := &VeoEngine{backend: genai.BackendVertexAI}

	// The URI points nowhere, so the download must be attempted and fail
	// rather than the video being rejected as empty.
	_, err := engine.extractVideo(context.Background(), veoOperation(&genai.Video{
		URI: "gs://missing-bucket/missing.mp4",
	}))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrVeoEmptyBytes)
	assert.Contains(t, err.Error(), "gs://missing-bucket/missing.mp4")
}
