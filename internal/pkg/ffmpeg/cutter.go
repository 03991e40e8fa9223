package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
)

const waveformFilter = "showwaves=s=1280x720:mode=line:colors=0x6366f1,format=yuv420p"

// Runner executes an external media tool
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner runs real processes
type CommandRunner struct{}

func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Cutter extracts sub-clips from media files
type Cutter struct {
	runner      Runner
	ffmpegPath  string
	ffprobePath string
}

// NewCutter creates media cutter
func NewCutter(ffmpegPath, ffprobePath string) (*Cutter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("no ffmpeg path")
	}
	if ffprobePath == "" {
		return nil, fmt.Errorf("no ffprobe path")
	}
	return &Cutter{runner: NewCommandRunner(), ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}, nil
}

// Cut extracts [start, end) from src into dst.
// Stream copy is tried first, on failure the clip is re-encoded.
func (c *Cutter) Cut(ctx context.Context, src, dst string, start, end float64) error {
	if out, err := c.runner.Run(ctx, c.ffmpegPath, cutCopyArgs(src, dst, start, end)...); err != nil {
		goapp.Log.Warn().Err(err).Str("out", goapp.Sanitize(tail(out))).Msg("stream copy failed, re-encoding")
		if out, err := c.runner.Run(ctx, c.ffmpegPath, cutEncodeArgs(src, dst, start, end)...); err != nil {
			return fmt.Errorf("can't cut clip: %w: %s", err, tail(out))
		}
	}
	return nil
}

// CutWaveform extracts an audio range into a waveform video clip
func (c *Cutter) CutWaveform(ctx context.Context, src, dst string, start, end float64) error {
	if out, err := c.runner.Run(ctx, c.ffmpegPath, waveformArgs(src, dst, start, end)...); err != nil {
		return fmt.Errorf("can't render waveform: %w: %s", err, tail(out))
	}
	return nil
}

// Thumbnail grabs a single frame at the clip start
func (c *Cutter) Thumbnail(ctx context.Context, src, dst string, at float64) error {
	if out, err := c.runner.Run(ctx, c.ffmpegPath, thumbnailArgs(src, dst, at)...); err != nil {
		return fmt.Errorf("can't grab thumbnail: %w: %s", err, tail(out))
	}
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns media duration in seconds
func (c *Cutter) Duration(ctx context.Context, src string) (float64, error) {
	out, err := c.runner.Run(ctx, c.ffprobePath, "-v", "quiet", "-print_format", "json", "-show_format", src)
	if err != nil {
		return 0, fmt.Errorf("can't probe: %w: %s", err, tail(out))
	}
	var res probeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("can't parse probe output: %w", err)
	}
	if res.Format.Duration == "" {
		return 0, fmt.Errorf("no duration in probe output")
	}
	d, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse duration '%s': %w", res.Format.Duration, err)
	}
	return d, nil
}

func cutCopyArgs(src, dst string, start, end float64) []string {
	return []string{"-y", "-ss", fmtSecs(start), "-to", fmtSecs(end), "-i", src,
		"-c", "copy", "-avoid_negative_ts", "make_zero", dst}
}

func cutEncodeArgs(src, dst string, start, end float64) []string {
	return []string{"-y", "-ss", fmtSecs(start), "-to", fmtSecs(end), "-i", src,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", dst}
}

func waveformArgs(src, dst string, start, end float64) []string {
	return []string{"-y", "-ss", fmtSecs(start), "-to", fmtSecs(end), "-i", src,
		"-filter_complex", fmt.Sprintf("[0:a]%s[v]", waveformFilter),
		"-map", "[v]", "-map", "0:a", "-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", dst}
}

func thumbnailArgs(src, dst string, at float64) []string {
	return []string{"-y", "-ss", fmtSecs(at), "-i", src, "-frames:v", "1", "-q:v", "3", dst}
}

func fmtSecs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func tail(b []byte) string {
	const n = 400
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
