package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	tapi "github.com/faridopz/repurpose-smart/internal/pkg/transcriber/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
)

const (
	maxWordStamps = 100
	maxKeywords   = 10
)

// Client communicates with the transcription service
type Client struct {
	httpclient    *http.Client
	uploadURL     string
	jobURL        string
	apiKey        string
	uploadTimeout time.Duration
	timeout       time.Duration
	backoff       func() backoff.BackOff
}

// NewClient creates a transcription client
func NewClient(uploadURL, jobURL, apiKey string) (*Client, error) {
	res := Client{}
	if uploadURL == "" {
		return nil, fmt.Errorf("no uploadURL")
	}
	if jobURL == "" {
		return nil, fmt.Errorf("no jobURL")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no apiKey")
	}
	res.uploadURL = uploadURL
	res.jobURL = jobURL
	res.apiKey = apiKey
	res.uploadTimeout = time.Minute * 10
	res.timeout = time.Second * 50
	res.httpclient = trHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// StartJob submits a media URL for transcription and returns the service job id.
// Media behind signed storage URLs is fetched and re-uploaded (streamed) to the
// service ingestion endpoint first.
func (sp *Client) StartJob(ctx context.Context, mediaURL string) (string, error) {
	ext := extOf(mediaURL)
	if !utils.SupportMediaExt(ext) {
		return "", utils.NewErrValidation("unsupported file format '%s'", ext)
	}
	audioURL := mediaURL
	if !isPublicURL(mediaURL) {
		var err error
		audioURL, err = sp.reupload(ctx, mediaURL)
		if err != nil {
			return "", utils.NewErrUpstream("transcription upload", err)
		}
	}
	id, err := sp.createJob(ctx, audioURL)
	if err != nil {
		return "", utils.NewErrUpstream("transcription service", err)
	}
	return id, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// reupload streams media bytes to the service ingestion endpoint, no buffering
func (sp *Client) reupload(ctx context.Context, mediaURL string) (string, error) {
	ctx, cancelF := context.WithTimeout(ctx, sp.uploadTimeout)
	defer cancelF()

	srcReq, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}
	srcResp, err := sp.httpclient.Do(srcReq)
	if err != nil {
		return "", fmt.Errorf("can't fetch media: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(srcResp.Body, 10000))
		_ = srcResp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(srcResp, 100); err != nil {
		return "", fmt.Errorf("can't fetch media '%s': %w", mediaURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.uploadURL, srcResp.Body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", sp.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if respData.UploadURL == "" {
		return "", fmt.Errorf("no upload_url in response")
	}
	return respData.UploadURL, nil
}

type jobRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SentimentAnalysis bool   `json:"sentiment_analysis"`
	AutoHighlights    bool   `json:"auto_highlights"`
	AutoChapters      bool   `json:"auto_chapters"`
	EntityDetection   bool   `json:"entity_detection"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`

	Text          string       `json:"text"`
	AudioDuration float64      `json:"audio_duration"`
	Words         []rawWord    `json:"words"`
	Utterances    []rawUtter   `json:"utterances"`
	Sentiment     []rawSent    `json:"sentiment_analysis_results"`
	Highlights    *rawHighRes  `json:"auto_highlights_result"`
}

type rawWord struct {
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type rawUtter struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type rawSent struct {
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

type rawHighRes struct {
	Results []rawHigh `json:"results"`
}

type rawHigh struct {
	Text string  `json:"text"`
	Rank float64 `json:"rank"`
}

func (sp *Client) createJob(ctx context.Context, audioURL string) (string, error) {
	b, err := json.Marshal(jobRequest{AudioURL: audioURL, SpeakerLabels: true,
		SentimentAnalysis: true, AutoHighlights: true, AutoChapters: true, EntityDetection: true})
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}
	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.jobURL, bytes.NewReader(b))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Authorization", sp.apiKey)
		req.Header.Set("Content-Type", "application/json")
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData jobResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		if respData.ID == "" {
			return "", false, fmt.Errorf("can't get job ID from response")
		}
		return respData.ID, false, nil
	}, sp.backoff())
}

// GetStatus returns normalized job status by ID.
// Repeated calls before completion are side effect free.
func (sp *Client) GetStatus(ctx context.Context, jobID string) (*tapi.StatusData, error) {
	return goapp.InvokeWithBackoff(ctx, func() (*tapi.StatusData, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", sp.jobURL, jobID), nil)
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Authorization", sp.apiKey)
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData jobResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		return mapStatus(jobID, &respData), false, nil
	}, sp.backoff())
}

func mapStatus(jobID string, raw *jobResponse) *tapi.StatusData {
	res := &tapi.StatusData{ID: jobID}
	switch raw.Status {
	case "completed":
		res.Status = tapi.JobCompleted
		res.Result = normalize(raw)
	case "error":
		res.Status = tapi.JobError
		res.Error = raw.Error
		if res.Error == "" {
			res.Error = "transcription failed"
		}
	default:
		res.Status = tapi.JobProcessing
	}
	return res
}

// normalize converts the raw service payload into the transcript shape:
// ms to s, speaker turns aggregated per named speaker, top keywords,
// word timestamps capped to bound payload size
func normalize(raw *jobResponse) *tapi.Result {
	res := &tapi.Result{Text: raw.Text, AudioDuration: raw.AudioDuration}
	for i, w := range raw.Words {
		if i >= maxWordStamps {
			break
		}
		res.Words = append(res.Words, persistence.WordStamp{Start: ms2s(w.Start), End: ms2s(w.End),
			Text: w.Text, Confidence: w.Confidence})
	}
	counts := map[string]int{}
	order := []string{}
	for _, u := range raw.Utterances {
		name := "Speaker " + u.Speaker
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name]++
	}
	for _, name := range order {
		res.Speakers = append(res.Speakers, persistence.SpeakerSegments{Name: name, Segments: counts[name]})
	}
	if raw.Highlights != nil {
		hs := raw.Highlights.Results
		sort.SliceStable(hs, func(i, j int) bool { return hs[i].Rank > hs[j].Rank })
		for i, h := range hs {
			if i >= maxKeywords {
				break
			}
			res.Keywords = append(res.Keywords, h.Text)
		}
	}
	for _, s := range raw.Sentiment {
		res.Sentiment = append(res.Sentiment, persistence.SentimentSpan{Start: ms2s(s.Start),
			End: ms2s(s.End), Sentiment: s.Sentiment, Score: s.Confidence})
	}
	return res
}

func ms2s(v int64) float64 {
	return float64(v) / 1000
}

func extOf(urlStr string) string {
	p := urlStr
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(filepath.Ext(p))
}

// isPublicURL - signed storage URLs need a fetch and re-upload,
// anything else is handed to the service as is
func isPublicURL(urlStr string) bool {
	return !strings.Contains(urlStr, "/object/sign/")
}

func trHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
