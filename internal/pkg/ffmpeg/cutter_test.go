package ffmpeg

import (
	"fmt"
	"testing"

	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func initCutter(t *testing.T) (*Cutter, *mocks.Runner) {
	t.Helper()
	r := &mocks.Runner{}
	c, err := NewCutter("ffmpeg", "ffprobe")
	require.Nil(t, err)
	c.runner = r
	return c, r
}

func TestNewCutter_Fails(t *testing.T) {
	_, err := NewCutter("", "ffprobe")
	assert.NotNil(t, err)
	_, err = NewCutter("ffmpeg", "")
	assert.NotNil(t, err)
}

func TestCut_StreamCopy(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffmpeg", mock.Anything).Return([]byte{}, nil)

	err := c.Cut(test.Ctx(t), "in.mp4", "out.mp4", 10, 45.5)

	assert.Nil(t, err)
	r.AssertNumberOfCalls(t, "Run", 1)
	args := r.Calls[0].Arguments.Get(2).([]string)
	assert.Contains(t, args, "copy")
	assert.Contains(t, args, "make_zero")
	assert.Contains(t, args, "10.000")
	assert.Contains(t, args, "45.500")
}

func TestCut_FallsBackToEncode(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffmpeg", mock.MatchedBy(func(args []string) bool {
		return contains(args, "copy")
	})).Return([]byte("err"), fmt.Errorf("copy failed"))
	r.On("Run", mock.Anything, "ffmpeg", mock.MatchedBy(func(args []string) bool {
		return contains(args, "libx264")
	})).Return([]byte{}, nil)

	err := c.Cut(test.Ctx(t), "in.mp4", "out.mp4", 0, 30)

	assert.Nil(t, err)
	r.AssertNumberOfCalls(t, "Run", 2)
}

func TestCut_BothFail(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffmpeg", mock.Anything).Return([]byte("boom"), fmt.Errorf("failed"))

	err := c.Cut(test.Ctx(t), "in.mp4", "out.mp4", 0, 30)

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCutWaveform(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffmpeg", mock.Anything).Return([]byte{}, nil)

	err := c.CutWaveform(test.Ctx(t), "in.mp3", "out.mp4", 5, 35)

	assert.Nil(t, err)
	args := r.Calls[0].Arguments.Get(2).([]string)
	assert.Contains(t, args, "-filter_complex")
	found := false
	for _, a := range args {
		if a == fmt.Sprintf("[0:a]%s[v]", waveformFilter) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestThumbnail(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffmpeg", mock.Anything).Return([]byte{}, nil)

	err := c.Thumbnail(test.Ctx(t), "in.mp4", "out.jpg", 12)

	assert.Nil(t, err)
	args := r.Calls[0].Arguments.Get(2).([]string)
	assert.Contains(t, args, "-frames:v")
	assert.Contains(t, args, "12.000")
}

func TestDuration(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffprobe", mock.Anything).Return([]byte(`{"format":{"duration":"120.52"}}`), nil)

	d, err := c.Duration(test.Ctx(t), "in.mp4")

	assert.Nil(t, err)
	assert.InDelta(t, 120.52, d, 0.0001)
}

func TestDuration_Fails(t *testing.T) {
	c, r := initCutter(t)
	r.On("Run", mock.Anything, "ffprobe", mock.Anything).Return([]byte(`{"format":{}}`), nil)

	_, err := c.Duration(test.Ctx(t), "in.mp4")

	assert.NotNil(t, err)
}

func contains(args []string, v string) bool {
	for _, a := range args {
		if a == v {
			return true
		}
	}
	return false
}
