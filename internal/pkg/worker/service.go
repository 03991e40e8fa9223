package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, messages.Message, string) error
}

// DB provides persistence functionality
type DB interface {
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
	LoadClip(ctx context.Context, id string) (*persistence.Clip, error)
	UpdateClipRendered(ctx context.Context, id, url, thumbnailURL string) error
}

// Filer stores and retrieves media files
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	PublicURL(name string) string
}

// Cutter extracts sub clips
type Cutter interface {
	Cut(ctx context.Context, src, dst string, start, end float64) error
	CutWaveform(ctx context.Context, src, dst string, start, end float64) error
	Thumbnail(ctx context.Context, src, dst string, at float64) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	MsgSender   MsgSender
	DB          DB
	Filer       Filer
	Cutter      Cutter
	WorkDir     string
	Testing     bool
}

// StartWorkerService starts the event queue listener service to listen for render events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Render: handler.Create(data, handleRender, handler.DefaultOpts[messages.RenderMessage]().
			WithFailure(renderFailure(data)).
			WithTimeout(time.Minute*60).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Render),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("render-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// renderFailure gives up after several attempts and informs the owner
func renderFailure(data *ServiceData) func(context.Context, *messages.RenderMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.RenderMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if j.ErrorCount < 3 {
			return true, 0, nil
		}
		if sendErr := data.MsgSender.SendMessage(ctx, messages.InformMessage{
			QueueMessage: m.QueueMessage, Type: messages.InformFailed, At: time.Now()}, messages.Inform); sendErr != nil {
			return true, 0, sendErr
		}
		return false, 0, nil
	}
}

func handleRender(ctx context.Context, m *messages.RenderMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Int("clips", len(m.ClipIDs)).Msg("handling render")
	media, err := data.DB.LoadMedia(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load media: %w", err)
	}
	if media == nil {
		return fmt.Errorf("no media '%s'", m.ID)
	}
	srcPath, clean, err := fetchSource(ctx, media, data)
	if err != nil {
		return fmt.Errorf("can't fetch source: %w", err)
	}
	defer clean()

	failed := 0
	for _, clipID := range m.ClipIDs {
		// one broken clip must not fail the batch
		if err := renderClip(ctx, clipID, srcPath, data); err != nil {
			goapp.Log.Error().Err(err).Str("ID", clipID).Msg("clip render failed")
			failed++
		}
	}
	goapp.Log.Info().Str("ID", m.ID).Int("failed", failed).Msg("render batch done")
	if err := data.MsgSender.SendMessage(ctx, messages.StatusMessage{
		QueueMessage: messages.QueueMessage{ID: m.ID}, Status: media.Status}, messages.StatusChange); err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	informType := messages.InformFinished
	if failed == len(m.ClipIDs) && failed > 0 {
		informType = messages.InformFailed
	}
	if err := data.MsgSender.SendMessage(ctx, messages.InformMessage{
		QueueMessage: messages.QueueMessage{ID: m.ID}, Type: informType, At: time.Now()}, messages.Inform); err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

// fetchSource downloads the media object into a temp file once per batch
func fetchSource(ctx context.Context, media *persistence.Media, data *ServiceData) (string, func(), error) {
	objName := utils.MakeFileName(media.ID, path.Base(media.SourceURL))
	goapp.Log.Info().Str("ID", media.ID).Str("file", objName).Msg("load file")
	r, err := data.Filer.LoadFile(ctx, objName)
	if err != nil {
		return "", nil, fmt.Errorf("can't load file: %w", err)
	}
	defer r.Close()
	f, err := os.CreateTemp(data.WorkDir, "source_*"+filepath.Ext(objName))
	if err != nil {
		return "", nil, fmt.Errorf("can't create temp file: %w", err)
	}
	clean := func() {
		if err := os.Remove(f.Name()); err != nil {
			goapp.Log.Warn().Err(err).Msg("temp file cleanup")
		}
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		clean()
		return "", nil, fmt.Errorf("can't copy file: %w", err)
	}
	if err := f.Close(); err != nil {
		clean()
		return "", nil, fmt.Errorf("can't close file: %w", err)
	}
	return f.Name(), clean, nil
}

func renderClip(ctx context.Context, clipID, srcPath string, data *ServiceData) error {
	clip, err := data.DB.LoadClip(ctx, clipID)
	if err != nil {
		return fmt.Errorf("can't load clip: %w", err)
	}
	if clip == nil {
		return fmt.Errorf("no clip '%s'", clipID)
	}
	goapp.Log.Info().Str("ID", clipID).Float64("from", clip.StartTime).Float64("to", clip.EndTime).Msg("render clip")
	outPath := filepath.Join(data.WorkDir, fmt.Sprintf("clip_%s.mp4", clipID))
	defer removeTemp(outPath)
	if utils.IsAudioExt(filepath.Ext(srcPath)) {
		err = data.Cutter.CutWaveform(ctx, srcPath, outPath, clip.StartTime, clip.EndTime)
	} else {
		err = data.Cutter.Cut(ctx, srcPath, outPath, clip.StartTime, clip.EndTime)
	}
	if err != nil {
		return err
	}
	thumbPath := filepath.Join(data.WorkDir, fmt.Sprintf("thumb_%s.jpg", clipID))
	defer removeTemp(thumbPath)
	thumbName := ""
	if err := data.Cutter.Thumbnail(ctx, outPath, thumbPath, 0); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", clipID).Msg("no thumbnail")
	} else {
		thumbName = fmt.Sprintf("thumbs/%s.jpg", clipID)
		if err := saveFile(ctx, data.Filer, thumbName, thumbPath); err != nil {
			return fmt.Errorf("can't save thumbnail: %w", err)
		}
	}
	clipName := fmt.Sprintf("clips/%s_%.0f-%.0f.mp4", clipID, clip.StartTime, clip.EndTime)
	if err := saveFile(ctx, data.Filer, clipName, outPath); err != nil {
		return fmt.Errorf("can't save clip: %w", err)
	}
	thumbURL := ""
	if thumbName != "" {
		thumbURL = data.Filer.PublicURL(thumbName)
	}
	if err := data.DB.UpdateClipRendered(ctx, clipID, data.Filer.PublicURL(clipName), thumbURL); err != nil {
		return fmt.Errorf("can't update clip: %w", err)
	}
	goapp.Log.Info().Str("ID", clipID).Msg("clip rendered")
	return nil
}

func saveFile(ctx context.Context, filer Filer, name, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("can't open file: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("can't stat file: %w", err)
	}
	return filer.SaveFile(ctx, name, f, st.Size())
}

func removeTemp(name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		goapp.Log.Warn().Err(err).Msg("temp file cleanup")
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.Filer == nil {
		return fmt.Errorf("no Filer")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Cutter == nil {
		return fmt.Errorf("no Cutter")
	}
	if data.WorkDir == "" {
		data.WorkDir = os.TempDir()
	}
	return nil
}
