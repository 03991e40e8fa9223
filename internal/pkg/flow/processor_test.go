package flow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/faridopz/repurpose-smart/internal/pkg/content"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/test/mocks"
	tapi "github.com/faridopz/repurpose-smart/internal/pkg/transcriber/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type genMock struct{ mock.Mock }

func (m *genMock) Generate(ctx context.Context, inp *content.Input) (*content.Output, error) {
	args := m.Called(ctx, inp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*content.Output), args.Error(1)
}

var (
	dbMock     *mocks.DB
	trMock     *mocks.Transcriber
	prMock     *mocks.TrProvider
	genMockObj *genMock
	sndMock    *mocks.Sender
	pr         *Processor
)

func initTest(t *testing.T) {
	t.Helper()
	dbMock = &mocks.DB{}
	trMock = &mocks.Transcriber{}
	prMock = &mocks.TrProvider{}
	genMockObj = &genMock{}
	sndMock = &mocks.Sender{}
	var err error
	pr, err = NewProcessor(dbMock, prMock, genMockObj, sndMock)
	require.Nil(t, err)
	pr.pollInterval = time.Millisecond
	pr.sleepF = func(ctx context.Context, d time.Duration) error { return nil }

	dbMock.On("LoadMedia", mock.Anything, "m1").Return(
		&persistence.Media{ID: "m1", OwnerID: "u1", SourceURL: "http://files/m1/f.mp4", Status: "uploaded"}, nil)
	dbMock.On("UpdateMediaStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("InsertTranscript", mock.Anything, mock.Anything).Return(nil)
	dbMock.On("UpdateTranscript", mock.Anything, mock.Anything).Return(nil)
	dbMock.On("InsertClips", mock.Anything, mock.Anything).Return(nil)
	dbMock.On("InsertArtifact", mock.Anything, mock.Anything).Return(nil)
	prMock.On("Get", "", true).Return(trMock, "gw1", nil)
	trMock.On("StartJob", mock.Anything, "http://files/m1/f.mp4").Return("job-olia", nil)
	trMock.On("GetStatus", mock.Anything, "job-olia").Return(completedStatus(), nil)
	genMockObj.On("Generate", mock.Anything, mock.Anything).Return(
		&content.Output{Generated: map[string]string{"linkedin": "LinkedIn text", "twitter": "tw"},
			Prompt: "prompt olia", Model: "m"}, nil)
	sndMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func completedStatus() *tapi.StatusData {
	return &tapi.StatusData{ID: "job-olia", Status: tapi.JobCompleted,
		Result: &tapi.Result{Text: "olia text",
			Keywords: []string{"olia"},
			Sentiment: []persistence.SentimentSpan{
				{Start: 10, End: 20, Sentiment: "POSITIVE", Score: 0.9}}}}
}

func TestProcess(t *testing.T) {
	initTest(t)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	dbMock.AssertCalled(t, "UpdateMediaStatus", mock.Anything, "m1", status.Transcribing)
	dbMock.AssertCalled(t, "UpdateMediaStatus", mock.Anything, "m1", status.Transcribed)
	tr := dbMock.Calls[2].Arguments.Get(1).(*persistence.Transcript)
	assert.Equal(t, "job-olia", tr.ExternalJobID)
	assert.Equal(t, "m1", tr.MediaID)
	assert.Equal(t, "u1", tr.OwnerID)
}

func TestProcess_SavesTranscript(t *testing.T) {
	initTest(t)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	var upd *persistence.Transcript
	for _, c := range dbMock.Calls {
		if c.Method == "UpdateTranscript" {
			upd = c.Arguments.Get(1).(*persistence.Transcript)
		}
	}
	require.NotNil(t, upd)
	assert.Equal(t, "olia text", upd.FullText.String)
	assert.Equal(t, []string{"olia"}, upd.Keywords)
	assert.Equal(t, status.TranscriptCompleted, upd.Status)
}

func TestProcess_SuggestsHighlights(t *testing.T) {
	initTest(t)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	var clips []*persistence.Clip
	for _, c := range dbMock.Calls {
		if c.Method == "InsertClips" {
			clips = c.Arguments.Get(1).([]*persistence.Clip)
		}
	}
	require.NotEmpty(t, clips)
	assert.Equal(t, 10.0, clips[0].StartTime)
	assert.Equal(t, 20.0, clips[0].EndTime)
	assert.Equal(t, "m1", clips[0].MediaID)
}

func TestProcess_GeneratesContent(t *testing.T) {
	initTest(t)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	inp := genMockObj.Calls[0].Arguments.Get(1).(*content.Input)
	assert.Equal(t, "olia text", inp.Transcript)
	assert.Equal(t, []string{"linkedin", "twitter"}, inp.Platforms)
	assert.Equal(t, "professional", inp.Tone)
	arts := map[string]string{}
	for _, c := range dbMock.Calls {
		if c.Method == "InsertArtifact" {
			a := c.Arguments.Get(1).(*persistence.ContentArtifact)
			arts[a.Platform] = a.Body
			assert.Equal(t, "professional", a.Tone)
			assert.Equal(t, "prompt olia", a.PromptUsed)
		}
	}
	assert.Equal(t, map[string]string{"linkedin": "LinkedIn text", "twitter": "tw"}, arts)
}

func TestProcess_ReportsSteps(t *testing.T) {
	initTest(t)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	var steps []string
	prev := -1.0
	for _, c := range sndMock.Calls {
		msg := c.Arguments.Get(1).(*messages.StatusMessage)
		steps = append(steps, msg.Step)
		assert.GreaterOrEqual(t, msg.Progress, prev)
		prev = msg.Progress
	}
	assert.Equal(t, []string{"checking", "preparing", "processing", "transcribing", "transcribing",
		"analyzing", "generating", "success"}, steps)
	assert.Equal(t, 100.0, prev)
}

func TestProcess_Polls(t *testing.T) {
	initTest(t)
	trMock.ExpectedCalls = nil
	trMock.On("StartJob", mock.Anything, mock.Anything).Return("job-olia", nil)
	trMock.On("GetStatus", mock.Anything, "job-olia").Return(
		&tapi.StatusData{ID: "job-olia", Status: tapi.JobProcessing}, nil).Times(3)
	trMock.On("GetStatus", mock.Anything, "job-olia").Return(completedStatus(), nil)

	err := pr.Process(test.Ctx(t), "m1")

	require.Nil(t, err)
	trMock.AssertNumberOfCalls(t, "GetStatus", 4)
}

func TestProcess_Timeout(t *testing.T) {
	initTest(t)
	pr.maxAttempts = 3
	trMock.ExpectedCalls = nil
	trMock.On("StartJob", mock.Anything, mock.Anything).Return("job-olia", nil)
	trMock.On("GetStatus", mock.Anything, "job-olia").Return(
		&tapi.StatusData{ID: "job-olia", Status: tapi.JobProcessing}, nil)

	err := pr.Process(test.Ctx(t), "m1")

	assert.ErrorIs(t, err, utils.ErrTimeout)
	trMock.AssertNumberOfCalls(t, "GetStatus", 3)
	dbMock.AssertCalled(t, "UpdateMediaStatus", mock.Anything, "m1", status.MediaError)
}

func TestProcess_JobFails(t *testing.T) {
	initTest(t)
	trMock.ExpectedCalls = nil
	trMock.On("StartJob", mock.Anything, mock.Anything).Return("job-olia", nil)
	trMock.On("GetStatus", mock.Anything, "job-olia").Return(
		&tapi.StatusData{ID: "job-olia", Status: tapi.JobError, Error: "bad audio"}, nil)

	err := pr.Process(test.Ctx(t), "m1")

	var errTr *utils.ErrTranscriptionFailed
	require.ErrorAs(t, err, &errTr)
	assert.Equal(t, "bad audio", errTr.Msg)
	var upd *persistence.Transcript
	for _, c := range dbMock.Calls {
		if c.Method == "UpdateTranscript" {
			upd = c.Arguments.Get(1).(*persistence.Transcript)
		}
	}
	require.NotNil(t, upd)
	assert.Equal(t, status.TranscriptError, upd.Status)
}

func TestProcess_FailureResetsStep(t *testing.T) {
	initTest(t)
	trMock.ExpectedCalls = nil
	trMock.On("StartJob", mock.Anything, mock.Anything).Return("", fmt.Errorf("olia error"))

	err := pr.Process(test.Ctx(t), "m1")

	require.NotNil(t, err)
	last := sndMock.Calls[len(sndMock.Calls)-1].Arguments.Get(1).(*messages.StatusMessage)
	assert.Equal(t, "upload", last.Step)
	assert.Equal(t, 0.0, last.Progress)
	assert.Contains(t, last.Error, "olia error")
}

func TestProcess_NoMedia(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadMedia", mock.Anything, "m2").Return(nil, nil)
	dbMock.On("UpdateMediaStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := pr.Process(test.Ctx(t), "m2")

	assert.NotNil(t, err)
}

func TestProcess_GenerateFails(t *testing.T) {
	initTest(t)
	genMockObj.ExpectedCalls = nil
	genMockObj.On("Generate", mock.Anything, mock.Anything).Return(nil, utils.ErrRateLimited)

	err := pr.Process(test.Ctx(t), "m1")

	assert.ErrorIs(t, err, utils.ErrRateLimited)
}

func Test_pollProgress(t *testing.T) {
	assert.InDelta(t, 60.5, pollProgress(1), 0.001)
	assert.InDelta(t, 65.0, pollProgress(10), 0.001)
	assert.InDelta(t, 70.0, pollProgress(20), 0.001)
	assert.InDelta(t, 70.0, pollProgress(120), 0.001)
}

func TestNewProcessor(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		db      DB
		trp     Transcribers
		gen     Generator
		snd     MsgSender
		wantErr bool
	}{
		{name: "OK", db: dbMock, trp: prMock, gen: genMockObj, snd: sndMock, wantErr: false},
		{name: "no DB", db: nil, trp: prMock, gen: genMockObj, snd: sndMock, wantErr: true},
		{name: "no provider", db: dbMock, trp: nil, gen: genMockObj, snd: sndMock, wantErr: true},
		{name: "no generator", db: dbMock, trp: prMock, gen: nil, snd: sndMock, wantErr: true},
		{name: "no sender", db: dbMock, trp: prMock, gen: genMockObj, snd: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProcessor(tt.db, tt.trp, tt.gen, tt.snd)
			if tt.wantErr {
				assert.NotNil(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}
