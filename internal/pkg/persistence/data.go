package persistence

import (
	"database/sql"
	"time"
)

type (

	// Media is an uploaded source recording
	Media struct {
		ID           string
		OwnerID      string
		Title        string
		SourceURL    string
		SizeBytes    int64
		MimeType     string
		Status       string
		DurationSecs sql.NullFloat64
		Created      time.Time
		Updated      time.Time
	}

	// WordStamp is a word level timestamp, seconds
	WordStamp struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}

	// SpeakerSegments aggregates utterance counts per named speaker
	SpeakerSegments struct {
		Name     string `json:"name"`
		Segments int    `json:"segments"`
	}

	// SentimentSpan is a sentiment window, seconds
	SentimentSpan struct {
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}

	// Transcript is the speech to text result for a media, 1:1
	Transcript struct {
		ID            string
		MediaID       string
		OwnerID       string
		ExternalJobID string
		Gateway       string
		FullText      sql.NullString
		Words         []WordStamp
		Speakers      []SpeakerSegments
		Keywords      []string
		Quotes        []string
		Sentiment     []SentimentSpan
		Status        string
		Created       time.Time
		Updated       time.Time
	}

	// Clip is a suggested or rendered sub range of a media timeline
	Clip struct {
		ID           string
		MediaID      string
		OwnerID      string
		StartTime    float64
		EndTime      float64
		Reason       string
		Excerpt      string
		Tags         []string
		Status       string
		RenderedURL  sql.NullString
		ThumbnailURL sql.NullString
		Created      time.Time
		Updated      time.Time
	}

	// ContentArtifact is a generated text piece, immutable once written
	ContentArtifact struct {
		ID          string
		MediaID     string
		OwnerID     string
		ContentType string
		Platform    string
		Tone        string
		Persona     sql.NullString
		Body        string
		PromptUsed  string
		ModelID     string
		Created     time.Time
	}

	// QuotaCounter tracks per user monthly smart clip usage
	QuotaCounter struct {
		UserID         string
		ClipsThisMonth int
		LastReset      time.Time
	}

	// Collection groups clips, organizational only
	Collection struct {
		ID      string
		OwnerID string
		Name    string
		Created time.Time
	}
)
