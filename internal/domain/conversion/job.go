package conversion

import "time"

// Status describes the lifecycle state of a conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a job in this state accepts no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one conversion request from submission to its terminal state.
type Job struct {
	ID           string
	SourceURL    string
	Status       Status
	Progress     int
	Title        string
	ArtifactName string
	ArtifactPath string
	ArtifactSize int64
	AudioFormat  string
	AudioQuality string
	Err          *AppError
	CreatedAt    time.Time
}

// Metadata holds upstream source information used to name artifacts.
type Metadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader"`
}

// ArtifactInfo describes a verified conversion output on disk.
type ArtifactInfo struct {
	Path string
	Size int64
}

// Options carries caller-selected encoding parameters.
type Options struct {
	AudioFormat  string
	AudioQuality string
}
