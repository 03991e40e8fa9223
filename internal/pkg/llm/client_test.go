package llm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	lapi "github.com/faridopz/repurpose-smart/internal/pkg/llm/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestClient(t *testing.T, code int, resp string) (*Client, *[]string) {
	t.Helper()
	reqs := make([]string, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		b, _ := io.ReadAll(req.Body)
		reqs = append(reqs, string(b))
		rw.WriteHeader(code)
		_, _ = rw.Write([]byte(resp))
	}))
	client := Client{}
	client.httpclient = server.Client()
	client.url = server.URL
	client.apiKey = "test-key"
	client.model = "gen-1"
	client.timeout = time.Second
	t.Cleanup(func() { server.Close() })
	return &client, &reqs
}

func TestComplete_Text(t *testing.T) {
	client, reqs := initTestClient(t, 200, `{"model":"gen-1","choices":[{"message":{"content":"olia text"}}],"usage":{"total_tokens":42}}`)

	r, err := client.Complete(test.Ctx(t), &lapi.Prompt{System: "sys olia", User: "user olia"})

	require.Nil(t, err)
	assert.Equal(t, "olia text", r.Text)
	assert.Equal(t, 42, r.Tokens)
	assert.Equal(t, "gen-1", r.Model)
	require.Equal(t, 1, len(*reqs))
	assert.Contains(t, (*reqs)[0], `"role":"system"`)
	assert.Contains(t, (*reqs)[0], "sys olia")
	assert.Contains(t, (*reqs)[0], "user olia")
}

func TestComplete_Tool(t *testing.T) {
	client, reqs := initTestClient(t, 200,
		`{"choices":[{"message":{"tool_calls":[{"function":{"name":"suggest_clips","arguments":"{\"clips\":[]}"}}]}}]}`)

	r, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia",
		Tool: &lapi.Tool{Name: "suggest_clips", Parameters: json.RawMessage(`{"type":"object"}`)}})

	require.Nil(t, err)
	assert.Equal(t, `{"clips":[]}`, string(r.ToolArgs))
	require.Equal(t, 1, len(*reqs))
	assert.Contains(t, (*reqs)[0], `"tool_choice"`)
	assert.Contains(t, (*reqs)[0], `"suggest_clips"`)
}

func TestComplete_RateLimited(t *testing.T) {
	client, _ := initTestClient(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)

	_, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia"})

	assert.ErrorIs(t, err, utils.ErrRateLimited)
}

func TestComplete_CreditsExhausted(t *testing.T) {
	client, _ := initTestClient(t, http.StatusPaymentRequired, `{"error":{"message":"no credits"}}`)

	_, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia"})

	assert.ErrorIs(t, err, utils.ErrQuotaExhausted)
}

func TestComplete_ErrorPayload(t *testing.T) {
	client, _ := initTestClient(t, 200, `{"error":{"message":"model overloaded"}}`)

	_, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia"})

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestComplete_Empty_Fails(t *testing.T) {
	client, _ := initTestClient(t, 200, `{"choices":[{"message":{"content":""}}]}`)

	_, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia"})

	assert.NotNil(t, err)
}

func TestComplete_WrongCode_Fails(t *testing.T) {
	client, _ := initTestClient(t, 500, `err`)

	_, err := client.Complete(test.Ctx(t), &lapi.Prompt{User: "olia"})

	assert.NotNil(t, err)
	var eu *utils.ErrUpstream
	assert.ErrorAs(t, err, &eu)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		key     string
		model   string
		wantErr bool
	}{
		{name: "OK", url: "http://olia", key: "k", model: "m", wantErr: false},
		{name: "Missing url", key: "k", model: "m", wantErr: true},
		{name: "Missing key", url: "http://olia", model: "m", wantErr: true},
		{name: "Missing model", url: "http://olia", key: "k", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClient(tt.url, tt.key, tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got == nil {
				t.Errorf("NewClient() = nil, want object")
			}
		})
	}
}
