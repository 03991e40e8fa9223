package result

import (
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var (
	filerMock *mocks.Filer
	dbMock    *mocks.DB
	tData     *Data
	tEcho     *echo.Echo
)

func initTest(t *testing.T) {
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	tData = &Data{}
	tData.DB = dbMock
	tData.Reader = filerMock
	tEcho = initRoutes(tData)
	filerMock.On("LoadFile", mock.Anything, "clips/c1_10-20.mp4").Return(&testFileWrap{s: "clip olia", n: "c1.mp4"}, nil)
	filerMock.On("LoadFile", mock.Anything, "thumbs/c1.jpg").Return(&testFileWrap{s: "thumb", n: "c1.jpg"}, nil)
	filerMock.On("LoadFile", mock.Anything, "m1/talk.mp4").Return(&testFileWrap{s: "source", n: "talk.mp4"}, nil)
	dbMock.On("LoadClip", mock.Anything, "c1").Return(&persistence.Clip{ID: "c1", MediaID: "m1",
		StartTime: 10, EndTime: 20,
		RenderedURL:  sql.NullString{String: "http://files/clips/c1_10-20.mp4", Valid: true},
		ThumbnailURL: sql.NullString{String: "http://files/thumbs/c1.jpg", Valid: true}}, nil)
	dbMock.On("LoadClip", mock.Anything, mock.Anything).Return(nil, nil)
	dbMock.On("LoadMedia", mock.Anything, "m1").Return(&persistence.Media{ID: "m1",
		SourceURL: "http://files/m1/talk.mp4"}, nil)
	dbMock.On("LoadMedia", mock.Anything, mock.Anything).Return(nil, nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/clip/c1", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Clip(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/clip/c1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "clip olia", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=c1.mp4", resp.Header().Get("Content-Disposition"))
}

func Test_Clip_NotRendered(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadClip", mock.Anything, "c1").Return(&persistence.Clip{ID: "c1", MediaID: "m1",
		StartTime: 10, EndTime: 20}, nil)
	req := httptest.NewRequest(http.MethodGet, "/clip/c1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
	filerMock.AssertNotCalled(t, "LoadFile", mock.Anything, mock.Anything)
}

func Test_Clip_Unknown(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/clip/xxx", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_Clip_NoFile(t *testing.T) {
	initTest(t)
	filerMock.ExpectedCalls = nil
	filerMock.On("LoadFile", mock.Anything, "clips/c1_10-20.mp4").Return(nil, minio.ErrorResponse{StatusCode: http.StatusNotFound})
	req := httptest.NewRequest(http.MethodGet, "/clip/c1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_Thumbnail(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/clip/c1/thumbnail", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "thumb", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=c1.jpg", resp.Header().Get("Content-Disposition"))
}

func Test_Thumbnail_None(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadClip", mock.Anything, "c1").Return(&persistence.Clip{ID: "c1", MediaID: "m1",
		StartTime: 10, EndTime: 20,
		RenderedURL: sql.NullString{String: "http://files/clips/c1_10-20.mp4", Valid: true}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/clip/c1/thumbnail", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_Media(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/media/m1/file", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "source", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=talk.mp4", resp.Header().Get("Content-Disposition"))
}

func Test_Media_Unknown(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/media/xxx/file", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_ClipHead(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodHead, "/clip/c1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=c1.mp4", resp.Header().Get("Content-Disposition"))
}

func Test_MediaHead(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodHead, "/media/m1/file", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=talk.mp4", resp.Header().Get("Content-Disposition"))
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_validate(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(d *Data)
		wantErr bool
	}{
		{name: "OK", mut: func(d *Data) {}, wantErr: false},
		{name: "Reader", mut: func(d *Data) { d.Reader = nil }, wantErr: true},
		{name: "DB", mut: func(d *Data) { d.DB = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			d := tData
			tt.mut(d)
			err := validate(d)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

type testFileWrap struct {
	s string
	n string
}

// Read implements io.ReadSeekCloser
func (fw *testFileWrap) Read(p []byte) (n int, err error) {
	return strings.NewReader(fw.s).Read(p)
}

// Seek implements io.ReadSeekCloser
func (fw *testFileWrap) Seek(offset int64, whence int) (int64, error) {
	return strings.NewReader(fw.s).Seek(offset, whence)
}

// Close implements io.ReadSeekCloser
func (fw *testFileWrap) Close() error {
	return nil
}

// Stat returns file stat
func (fw *testFileWrap) Stat() (fs.FileInfo, error) {
	return &testStatsWrap{size: int64(len(fw.s)), name: fw.n}, nil
}

type testStatsWrap struct {
	size int64
	name string
}

// IsDir implements fs.FileInfo
func (sw *testStatsWrap) IsDir() bool {
	return false
}

// ModTime implements fs.FileInfo
func (sw *testStatsWrap) ModTime() time.Time {
	return time.Now()
}

// Mode implements fs.FileInfo
func (sw *testStatsWrap) Mode() fs.FileMode {
	return fs.ModeTemporary
}

// Name implements fs.FileInfo
func (sw *testStatsWrap) Name() string {
	return sw.name
}

// Size implements fs.FileInfo
func (sw *testStatsWrap) Size() int64 {
	return sw.size
}

// Sys implements fs.FileInfo
func (sw *testStatsWrap) Sys() any {
	return nil
}
