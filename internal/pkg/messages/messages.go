package messages

import "time"

const (
	st = "REPURPOSE/"
	// Render queue name for background clip rendering
	Render = st + "Render"
	// StatusChange queue name for media status events
	StatusChange = st + "StatusChange"
	// Inform queue name for terminal pipeline notifications
	Inform = st + "Inform"
)

// Inform event types
const (
	InformFinished = "Finished"
	InformFailed   = "Failed"
)

// Message is a marker for queue payloads
type Message interface{}

// QueueMessage is the base payload passing through the queues
type QueueMessage struct {
	ID string `json:"id"`
}

// RenderMessage triggers background rendering for a batch of suggested clips.
// ID is the media ID, clips are processed strictly in order.
type RenderMessage struct {
	QueueMessage
	ClipIDs []string `json:"clipIDs"`
}

// StatusMessage announces a media status change.
// Step and Progress track the pipeline flow for live UI updates.
type StatusMessage struct {
	QueueMessage
	Status   string  `json:"status,omitempty"`
	Step     string  `json:"step,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// InformMessage announces a terminal pipeline state for notification
type InformMessage struct {
	QueueMessage
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}
