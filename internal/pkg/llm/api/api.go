package api

import (
	"context"
	"encoding/json"
)

// Tool describes a function the model may be forced to call
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Prompt is a single completion request
type Prompt struct {
	System      string
	User        string
	Tool        *Tool
	Temperature float64
	MaxTokens   int
}

// Result holds the model output. Text is set for plain completions,
// ToolArgs for forced tool calls
type Result struct {
	Text     string
	ToolArgs json.RawMessage
	Tokens   int
	Model    string
}

// Completer makes generative text calls
type Completer interface {
	Complete(ctx context.Context, prm *Prompt) (*Result, error)
}
