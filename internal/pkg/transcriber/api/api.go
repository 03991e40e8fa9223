package api

import (
	"context"

	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
)

// Job status values as normalized from the transcription service
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobError      = "error"
)

// StatusData keeps structure for job status method
type StatusData struct {
	ID     string
	Status string
	Error  string
	Result *Result
}

// Result is the normalized completed transcription payload
type Result struct {
	Text          string
	Words         []persistence.WordStamp
	Speakers      []persistence.SpeakerSegments
	Keywords      []string
	Sentiment     []persistence.SentimentSpan
	AudioDuration float64
}

// Transcriber provides transcription job operations
type Transcriber interface {
	StartJob(ctx context.Context, mediaURL string) (string, error)
	GetStatus(ctx context.Context, jobID string) (*StatusData, error)
}
