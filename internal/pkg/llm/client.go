package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	lapi "github.com/faridopz/repurpose-smart/internal/pkg/llm/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
)

// Client communicates with the generative text gateway.
// The gateway speaks the chat completions dialect.
type Client struct {
	httpclient *http.Client
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
}

// NewClient creates a generative text client
func NewClient(url, apiKey, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no apiKey")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.apiKey = apiKey
	res.model = model
	res.timeout = time.Minute * 2
	res.httpclient = &http.Client{Transport: newTransport()}
	return &res, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  *toolChoice   `json:"tool_choice,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete invokes the gateway once. Rate limit and exhausted credit
// responses map to the corresponding sentinel errors so callers can
// surface them to users instead of retrying.
func (sp *Client) Complete(ctx context.Context, prm *lapi.Prompt) (*lapi.Result, error) {
	rd := chatRequest{Model: sp.model, Temperature: prm.Temperature, MaxTokens: prm.MaxTokens}
	if prm.System != "" {
		rd.Messages = append(rd.Messages, chatMessage{Role: "system", Content: prm.System})
	}
	rd.Messages = append(rd.Messages, chatMessage{Role: "user", Content: prm.User})
	if prm.Tool != nil {
		rd.Tools = append(rd.Tools, chatTool{Type: "function",
			Function: chatFunction{Name: prm.Tool.Name, Description: prm.Tool.Description, Parameters: prm.Tool.Parameters}})
		tc := &toolChoice{Type: "function"}
		tc.Function.Name = prm.Tool.Name
		rd.ToolChoice = tc
	}
	b, err := json.Marshal(rd)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}

	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sp.apiKey)
	req.Header.Set("Content-Type", "application/json")
	goapp.Log.Info().Str("url", req.URL.String()).Str("model", sp.model).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, utils.NewErrUpstream("text generation", fmt.Errorf("can't call: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, utils.ErrRateLimited
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, utils.ErrQuotaExhausted
	}
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, utils.NewErrUpstream("text generation", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err))
	}
	var respData chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("can't decode response: %w", err)
	}
	return mapResult(&respData)
}

func mapResult(raw *chatResponse) (*lapi.Result, error) {
	if raw.Error != nil {
		return nil, utils.NewErrUpstream("text generation", fmt.Errorf("%s", raw.Error.Message))
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	res := &lapi.Result{Model: raw.Model, Tokens: raw.Usage.TotalTokens}
	msg := raw.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		res.ToolArgs = json.RawMessage(msg.ToolCalls[0].Function.Arguments)
		return res, nil
	}
	if msg.Content == "" {
		return nil, fmt.Errorf("empty completion")
	}
	res.Text = msg.Content
	return res, nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
