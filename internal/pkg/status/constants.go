package status

// Media represents media pipeline status
type Media int

const (
	// Uploaded - source bytes are in the store
	Uploaded Media = iota + 1
	// Transcribing - external transcription job is running
	Transcribing
	// Transcribed - transcript is complete
	Transcribed
	// MediaError - terminal failure
	MediaError
)

var (
	mediaName = map[Media]string{Uploaded: "uploaded", Transcribing: "transcribing",
		Transcribed: "transcribed", MediaError: "error"}
	nameMedia = map[string]Media{"uploaded": Uploaded, "transcribing": Transcribing,
		"transcribed": Transcribed, "error": MediaError}
)

func (st Media) String() string {
	return mediaName[st]
}

// MediaFrom returns media status obj from string
func MediaFrom(st string) Media {
	return nameMedia[st]
}

// Transcript status values
const (
	TranscriptProcessing = "processing"
	TranscriptCompleted  = "completed"
	TranscriptError      = "error"
)

// Clip status values
const (
	ClipSuggested = "suggested"
	ClipCreated   = "created"
)

// Step represents a stage of the client driven pipeline flow
type Step int

const (
	// StepUpload - initial state, waiting for input
	StepUpload Step = iota + 1
	// StepChecking - input validated
	StepChecking
	// StepPreparing - bytes saved, media record created
	StepPreparing
	// StepProcessing - transcription job submitted
	StepProcessing
	// StepTranscribing - polling external job
	StepTranscribing
	// StepAnalyzing - highlight suggestion running
	StepAnalyzing
	// StepGenerating - content generation running
	StepGenerating
	// StepSuccess - terminal state
	StepSuccess
)

var stepName = map[Step]string{StepUpload: "upload", StepChecking: "checking",
	StepPreparing: "preparing", StepProcessing: "processing", StepTranscribing: "transcribing",
	StepAnalyzing: "analyzing", StepGenerating: "generating", StepSuccess: "success"}

func (s Step) String() string {
	return stepName[s]
}
