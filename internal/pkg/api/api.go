package api

const (
	// PrmFile is form file parameter name
	PrmFile = "file"
	// PrmTitle is media title form parameter
	PrmTitle = "title"
)

// MaxMediaSize is the upload size cap in bytes (1 GiB)
const MaxMediaSize = int64(1024 * 1024 * 1024)

// Platform values accepted by content generation
const (
	PlatformLinkedIn  = "linkedin"
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
	PlatformBlog      = "blog"
	PlatformFacebook  = "facebook"
	PlatformSummary   = "summary"
)

// Platforms lists all supported content platforms
var Platforms = []string{PlatformLinkedIn, PlatformTwitter, PlatformInstagram,
	PlatformYoutube, PlatformBlog, PlatformFacebook, PlatformSummary}

// ClipCategories is the fixed category set for AI suggested clips
var ClipCategories = []string{"Motivational", "Insightful", "Funny", "Educational", "Story", "Quote"}

// Subscription tiers
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Highlight suggestion modes
const (
	ModeHeuristic = "heuristic"
	ModeSmart     = "smart"
)

type (
	// UploadResult is returned by the upload operation
	UploadResult struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}

	// StartTranscriptionInput starts a transcription job for a media record
	StartTranscriptionInput struct {
		MediaID string `json:"mediaId" validate:"required"`
	}

	// StartTranscriptionResult carries the external job reference
	StartTranscriptionResult struct {
		JobID       string           `json:"jobId"`
		Diagnostics map[string]int64 `json:"diagnostics,omitempty"`
	}

	// PollResult reports transcription job state
	PollResult struct {
		Status   string  `json:"status"`
		Text     string  `json:"text,omitempty"`
		Progress float64 `json:"progress,omitempty"`
	}

	// SuggestInput requests highlight suggestions for a media record
	SuggestInput struct {
		MediaID string `json:"mediaId" validate:"required"`
		Mode    string `json:"mode" validate:"omitempty,oneof=heuristic smart"`
		Context string `json:"context,omitempty"`
	}

	// ClipData is a clip row as returned over the API
	ClipData struct {
		ID          string   `json:"id"`
		MediaID     string   `json:"mediaId"`
		StartTime   float64  `json:"startTime"`
		EndTime     float64  `json:"endTime"`
		Reason      string   `json:"reason"`
		Excerpt     string   `json:"excerpt,omitempty"`
		Tags        []string `json:"tags,omitempty"`
		Status      string   `json:"status"`
		URL         string   `json:"url,omitempty"`
		ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
	}

	// SuggestResult is returned by highlight suggestion calls
	SuggestResult struct {
		Count          int        `json:"count"`
		Clips          []ClipData `json:"clips"`
		RemainingQuota *int       `json:"remainingQuota,omitempty"`
	}

	// GenerateContentInput requests platform content generation
	GenerateContentInput struct {
		MediaID   string   `json:"mediaId" validate:"required"`
		Platforms []string `json:"platforms" validate:"required,min=1,dive,oneof=linkedin twitter instagram youtube blog facebook summary"`
		Tone      string   `json:"tone"`
		Persona   string   `json:"persona,omitempty"`
	}

	// GenerateContentResult maps platform to generated text
	GenerateContentResult struct {
		Generated   map[string]string `json:"generated"`
		Diagnostics Diagnostics       `json:"diagnostics"`
	}

	// Diagnostics carries structured detail alongside user facing messages
	Diagnostics struct {
		Cached         bool  `json:"cached"`
		TotalTimeMs    int64 `json:"totalTimeMs"`
		GenerationMs   int64 `json:"generationMs,omitempty"`
		TokensEstimate int   `json:"tokensEstimate,omitempty"`
	}

	// ErrorResponse is the uniform failure payload
	ErrorResponse struct {
		Error        string `json:"error"`
		Step         string `json:"step,omitempty"`
		LimitReached bool   `json:"limitReached,omitempty"`
		CurrentPlan  string `json:"currentPlan,omitempty"`
	}
)
