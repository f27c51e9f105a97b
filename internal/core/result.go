package core

// Stage names for the per-scene render state machine. A failed result records
// the stage in which the failure occurred.
const (
	StageReceived        = "received"
	StageGeneratingVideo = "generating_video"
	StageGeneratingAudio = "generating_audio"
	StageMixing          = "mixing"
	StageMuxing          = "muxing"
	StageStoring         = "storing"
	StageDone            = "done"
	StageFailed          = "failed"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RenderResult is the outcome of rendering one scene. OutputPath is always
// set on success; OutputURL is additionally set when an object store is
// configured.
type RenderResult struct {
	SceneID           string  `json:"scene_id"`
	Status            string  `json:"status"`
	OutputPath        string  `json:"output_path,omitempty"`
	OutputURL         string  `json:"output_url,omitempty"`
	DurationSeconds   float64 `json:"duration_seconds,omitempty"`
	ProcessingSeconds float64 `json:"processing_seconds"`
	Stage             string  `json:"stage,omitempty"`
	Error             string  `json:"error,omitempty"`
}
