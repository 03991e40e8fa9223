package mocks

import (
	"context"
	"io"
	"time"

	lapi "github.com/faridopz/repurpose-smart/internal/pkg/llm/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	tapi "github.com/faridopz/repurpose-smart/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) Remove(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *Filer) PublicURL(name string) string {
	args := m.Called(name)
	return args.String(0)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertMedia(ctx context.Context, data *persistence.Media) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *DB) LoadMedia(ctx context.Context, id string) (*persistence.Media, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Media](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateMediaStatus(ctx context.Context, id string, st status.Media) error {
	args := m.Called(ctx, id, st)
	return args.Error(0)
}

func (m *DB) InsertTranscript(ctx context.Context, data *persistence.Transcript) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *DB) LoadTranscriptByMedia(ctx context.Context, mediaID string) (*persistence.Transcript, error) {
	args := m.Called(ctx, mediaID)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *DB) LoadTranscriptByJob(ctx context.Context, jobID string) (*persistence.Transcript, error) {
	args := m.Called(ctx, jobID)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateTranscript(ctx context.Context, data *persistence.Transcript) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *DB) InsertClips(ctx context.Context, clips []*persistence.Clip) error {
	args := m.Called(ctx, clips)
	return args.Error(0)
}

func (m *DB) LoadClip(ctx context.Context, id string) (*persistence.Clip, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Clip](args.Get(0)), args.Error(1)
}

func (m *DB) LoadClipsByMedia(ctx context.Context, mediaID string) ([]*persistence.Clip, error) {
	args := m.Called(ctx, mediaID)
	return to[[]*persistence.Clip](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateClipRendered(ctx context.Context, id, url, thumbnailURL string) error {
	args := m.Called(ctx, id, url, thumbnailURL)
	return args.Error(0)
}

func (m *DB) InsertArtifact(ctx context.Context, data *persistence.ContentArtifact) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *DB) LoadQuota(ctx context.Context, userID string) (*persistence.QuotaCounter, error) {
	args := m.Called(ctx, userID)
	return to[*persistence.QuotaCounter](args.Get(0)), args.Error(1)
}

func (m *DB) ResetQuota(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *DB) AddQuotaUsage(ctx context.Context, userID string, count, limit int) (bool, error) {
	args := m.Called(ctx, userID, count, limit)
	return args.Bool(0), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) StartJob(ctx context.Context, mediaURL string) (string, error) {
	args := m.Called(ctx, mediaURL)
	return args.String(0), args.Error(1)
}

func (m *Transcriber) GetStatus(ctx context.Context, jobID string) (*tapi.StatusData, error) {
	args := m.Called(ctx, jobID)
	return to[*tapi.StatusData](args.Get(0)), args.Error(1)
}

// TrProvider is transcriber provider mock
type TrProvider struct{ mock.Mock }

func (m *TrProvider) Get(srv string, allowNew bool) (tapi.Transcriber, string, error) {
	args := m.Called(srv, allowNew)
	return to[tapi.Transcriber](args.Get(0)), args.String(1), args.Error(2)
}

// Suggester is smart highlight suggester mock
type Suggester struct{ mock.Mock }

func (m *Suggester) Smart(ctx context.Context, tr *persistence.Transcript, clipContext string) ([]*persistence.Clip, error) {
	args := m.Called(ctx, tr, clipContext)
	return to[[]*persistence.Clip](args.Get(0)), args.Error(1)
}

// Quota is quota tracker mock
type Quota struct{ mock.Mock }

func (m *Quota) Use(ctx context.Context, userID, tier string, count int) error {
	args := m.Called(ctx, userID, tier, count)
	return args.Error(0)
}

func (m *Quota) Remaining(ctx context.Context, userID, tier string) (int, error) {
	args := m.Called(ctx, userID, tier)
	return args.Int(0), args.Error(1)
}

// Completer is generative text client mock
type Completer struct{ mock.Mock }

func (m *Completer) Complete(ctx context.Context, prm *lapi.Prompt) (*lapi.Result, error) {
	args := m.Called(ctx, prm)
	return to[*lapi.Result](args.Get(0)), args.Error(1)
}

// Runner is media tool mock
type Runner struct{ mock.Mock }

func (m *Runner) Run(ctx context.Context, name string, cmdArgs ...string) ([]byte, error) {
	args := m.Called(ctx, name, cmdArgs)
	return to[[]byte](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
