package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/faridopz/repurpose-smart/internal/pkg/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/content"
	"github.com/faridopz/repurpose-smart/internal/pkg/highlight"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/quota"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	tapi "github.com/faridopz/repurpose-smart/internal/pkg/transcriber/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	PublicURL(name string) string
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, messages.Message, string) error
}

// DB provides persistence operations for the API
type DB interface {
	InsertMedia(ctx context.Context, m *persistence.Media) error
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
	UpdateMediaStatus(ctx context.Context, id string, st status.Media) error
	InsertTranscript(ctx context.Context, t *persistence.Transcript) error
	LoadTranscriptByMedia(ctx context.Context, mediaID string) (*persistence.Transcript, error)
	LoadTranscriptByJob(ctx context.Context, jobID string) (*persistence.Transcript, error)
	UpdateTranscript(ctx context.Context, t *persistence.Transcript) error
	InsertClips(ctx context.Context, clips []*persistence.Clip) error
	InsertArtifact(ctx context.Context, a *persistence.ContentArtifact) error
}

// Transcribers selects a transcription gateway
type Transcribers interface {
	Get(srv string, allowNew bool) (tapi.Transcriber, string, error)
}

// Suggester proposes AI clips using the generative service
type Suggester interface {
	Smart(ctx context.Context, tr *persistence.Transcript, clipContext string) ([]*persistence.Clip, error)
}

// Generator creates platform content from transcript text
type Generator interface {
	Generate(ctx context.Context, inp *content.Input) (*content.Output, error)
}

// Quota tracks monthly smart clip usage
type Quota interface {
	Use(ctx context.Context, userID, tier string, count int) error
	Remaining(ctx context.Context, userID, tier string) (int, error)
}

// Data keeps data required for service work
type Data struct {
	Port         int
	Saver        FileSaver
	DB           DB
	Transcribers Transcribers
	Suggester    Suggester
	Generator    Generator
	Quota        Quota
	MsgSender    MsgSender
}

const (
	userIDHeader = "x-user-id"
	tierHeader   = "x-user-tier"
)

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP repurpose API service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 600 * time.Second
	e.Server.WriteTimeout = 60 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Transcribers == nil {
		return fmt.Errorf("no transcribers provider")
	}
	if data.Suggester == nil {
		return fmt.Errorf("no suggester")
	}
	if data.Generator == nil {
		return fmt.Errorf("no content generator")
	}
	if data.Quota == nil {
		return fmt.Errorf("no quota tracker")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("repurpose_api", nil)
}

var inputValidator = validator.New()

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	e.POST("/transcriptions", startTranscription(data))
	e.GET("/transcriptions/:id", pollTranscription(data))
	e.POST("/media/:id/highlights", suggestHighlights(data))
	e.POST("/media/:id/content", generateContent(data))
	e.POST("/media/:id/smart-clips", smartClips(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)

		file, fHeader, err := takeFile(form, api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'file'")
		}
		defer file.Close()

		if err := validateMedia(fHeader); err != nil {
			return errResp(c, err)
		}

		m := &persistence.Media{}
		m.ID = uuid.NewString()
		m.OwnerID = userID(c)
		m.Title = takeFirst(form.Value[api.PrmTitle], fHeader.Filename)
		m.SizeBytes = fHeader.Size
		m.MimeType = fHeader.Header.Get(echo.HeaderContentType)
		m.Status = status.Uploaded.String()
		m.Created = time.Now()

		fn, err := utils.MakeValidateFileName(m.ID, fHeader.Filename)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file name: "+fHeader.Filename)
		}
		if err := data.Saver.SaveFile(ctx, fn, file, fHeader.Size); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		m.SourceURL = data.Saver.PublicURL(fn)
		if err := data.DB.InsertMedia(ctx, m); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("ID", m.ID).Int64("size", m.SizeBytes).Msg("media saved")

		return c.JSON(http.StatusOK, api.UploadResult{ID: m.ID, URL: m.SourceURL})
	}
}

func startTranscription(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("startTranscription method")()
		ctx := c.Request().Context()

		var inp api.StartTranscriptionInput
		if err := bind(c, &inp); err != nil {
			return err
		}
		media, err := data.DB.LoadMedia(ctx, inp.MediaID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if media == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown media "+inp.MediaID)
		}

		trans, srvName, err := data.Transcribers.Get("", true)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return errResp(c, utils.NewErrUpstream("transcription", err))
		}
		if err := data.DB.UpdateMediaStatus(ctx, media.ID, status.Transcribing); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		jobID, err := trans.StartJob(ctx, media.SourceURL)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return errResp(c, err)
		}
		tr := &persistence.Transcript{ID: uuid.NewString(), MediaID: media.ID, OwnerID: media.OwnerID,
			ExternalJobID: jobID, Gateway: srvName, Status: status.TranscriptProcessing, Created: time.Now()}
		if err := data.DB.InsertTranscript(ctx, tr); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("ID", media.ID).Str("jobID", jobID).Msg("transcription started")

		return c.JSON(http.StatusOK, api.StartTranscriptionResult{JobID: jobID})
	}
}

func pollTranscription(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("pollTranscription method")()
		ctx := c.Request().Context()

		jobID := c.Param("id")
		tr, err := data.DB.LoadTranscriptByJob(ctx, jobID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if tr == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown job "+jobID)
		}
		if tr.Status == status.TranscriptCompleted {
			return c.JSON(http.StatusOK, api.PollResult{Status: tr.Status, Text: utils.FromSQLStr(tr.FullText)})
		}

		trans, _, err := data.Transcribers.Get(tr.Gateway, false)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return errResp(c, utils.NewErrUpstream("transcription", err))
		}
		st, err := trans.GetStatus(ctx, jobID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return errResp(c, err)
		}
		res := api.PollResult{Status: st.Status}
		switch st.Status {
		case tapi.JobCompleted:
			tr.FullText = utils.ToSQLStr(st.Result.Text)
			tr.Words = st.Result.Words
			tr.Speakers = st.Result.Speakers
			tr.Keywords = st.Result.Keywords
			tr.Sentiment = st.Result.Sentiment
			tr.Status = status.TranscriptCompleted
			if err := data.DB.UpdateTranscript(ctx, tr); err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
			if err := data.DB.UpdateMediaStatus(ctx, tr.MediaID, status.Transcribed); err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
			res.Text = st.Result.Text
		case tapi.JobError:
			tr.Status = status.TranscriptError
			if err := data.DB.UpdateTranscript(ctx, tr); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
			if err := data.DB.UpdateMediaStatus(ctx, tr.MediaID, status.MediaError); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		}
		return c.JSON(http.StatusOK, res)
	}
}

func suggestHighlights(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("suggestHighlights method")()

		res, err := suggest(c, data, false)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

// smartClips proposes AI clips and queues their background rendering
func smartClips(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("smartClips method")()
		ctx := c.Request().Context()

		res, err := suggest(c, data, true)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(res.Clips))
		for _, cl := range res.Clips {
			ids = append(ids, cl.ID)
		}
		mediaID := c.Param("id")
		err = data.MsgSender.SendMessage(ctx, &messages.RenderMessage{
			QueueMessage: messages.QueueMessage{ID: mediaID}, ClipIDs: ids}, messages.Render)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("ID", mediaID).Int("clips", len(ids)).Msg("render queued")
		return c.JSON(http.StatusOK, res)
	}
}

func suggest(c echo.Context, data *Data, forceSmart bool) (*api.SuggestResult, error) {
	ctx := c.Request().Context()

	var inp api.SuggestInput
	if err := c.Bind(&inp); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
	}
	inp.MediaID = c.Param("id")
	if err := inputValidator.Struct(&inp); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if forceSmart || inp.Mode == api.ModeSmart {
		inp.Mode = api.ModeSmart
	} else {
		inp.Mode = api.ModeHeuristic
	}

	tr, err := loadCompletedTranscript(ctx, data, inp.MediaID)
	if err != nil {
		return nil, err
	}

	res := &api.SuggestResult{}
	var clips []*persistence.Clip
	if inp.Mode == api.ModeSmart {
		user, tier := userID(c), userTier(c)
		remaining, err := data.Quota.Remaining(ctx, user, tier)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, echo.NewHTTPError(http.StatusInternalServerError)
		}
		if remaining == 0 {
			return nil, errResp(c, &utils.ErrQuotaLimit{Tier: tier, Limit: quota.Limit(tier)})
		}
		clips, err = data.Suggester.Smart(ctx, tr, inp.Context)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, errResp(c, err)
		}
		// charge quota first so a rejected request leaves no clip rows
		if err := data.Quota.Use(ctx, user, tier, len(clips)); err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, errResp(c, err)
		}
		if err := data.DB.InsertClips(ctx, clips); err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, echo.NewHTTPError(http.StatusInternalServerError)
		}
		remaining, err = data.Quota.Remaining(ctx, user, tier)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, echo.NewHTTPError(http.StatusInternalServerError)
		}
		res.RemainingQuota = &remaining
	} else {
		clips = highlight.Heuristic(tr)
		if err := data.DB.InsertClips(ctx, clips); err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil, echo.NewHTTPError(http.StatusInternalServerError)
		}
	}

	res.Count = len(clips)
	for _, cl := range clips {
		res.Clips = append(res.Clips, toAPIClip(cl))
	}
	return res, nil
}

func generateContent(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("generateContent method")()
		ctx := c.Request().Context()
		start := time.Now()

		var inp api.GenerateContentInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
		}
		inp.MediaID = c.Param("id")
		if err := inputValidator.Struct(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		tr, err := loadCompletedTranscript(ctx, data, inp.MediaID)
		if err != nil {
			return err
		}

		out, err := data.Generator.Generate(ctx, &content.Input{Transcript: utils.FromSQLStr(tr.FullText),
			Platforms: inp.Platforms, Tone: inp.Tone, Persona: inp.Persona})
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return errResp(c, err)
		}
		if !out.Cached {
			for _, pl := range inp.Platforms {
				a := &persistence.ContentArtifact{ID: uuid.NewString(), MediaID: tr.MediaID, OwnerID: tr.OwnerID,
					ContentType: "post", Platform: pl, Tone: orDefault(inp.Tone, "professional"),
					Persona: utils.ToSQLStr(inp.Persona), Body: out.Generated[pl],
					PromptUsed: out.Prompt, ModelID: out.Model, Created: time.Now()}
				if err := data.DB.InsertArtifact(ctx, a); err != nil {
					goapp.Log.Error().Err(err).Send()
					return echo.NewHTTPError(http.StatusInternalServerError)
				}
			}
		}

		return c.JSON(http.StatusOK, api.GenerateContentResult{Generated: out.Generated,
			Diagnostics: api.Diagnostics{Cached: out.Cached, TotalTimeMs: time.Since(start).Milliseconds(),
				GenerationMs: out.GenerationMs, TokensEstimate: out.Tokens}})
	}
}

func loadCompletedTranscript(ctx context.Context, data *Data, mediaID string) (*persistence.Transcript, error) {
	tr, err := data.DB.LoadTranscriptByMedia(ctx, mediaID)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	if tr == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no transcript for media "+mediaID)
	}
	if tr.Status != status.TranscriptCompleted {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "transcript not ready, status: "+tr.Status)
	}
	return tr, nil
}

func bind(c echo.Context, inp interface{}) error {
	if err := c.Bind(inp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "can't decode input")
	}
	if err := inputValidator.Struct(inp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// errResp maps internal error types to HTTP responses
func errResp(c echo.Context, err error) error {
	var errV *utils.ErrValidation
	if errors.As(err, &errV) {
		return echo.NewHTTPError(http.StatusBadRequest, errV.Error())
	}
	var errQ *utils.ErrQuotaLimit
	if errors.As(err, &errQ) {
		return echo.NewHTTPError(http.StatusTooManyRequests, api.ErrorResponse{Error: errQ.Error(),
			LimitReached: true, CurrentPlan: errQ.Tier})
	}
	if errors.Is(err, utils.ErrRateLimited) {
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	}
	if errors.Is(err, utils.ErrQuotaExhausted) {
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	}
	var errU *utils.ErrUpstream
	if errors.As(err, &errU) {
		return echo.NewHTTPError(http.StatusBadGateway, errU.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func validateMedia(fHeader *multipart.FileHeader) error {
	if fHeader.Size > api.MaxMediaSize {
		return utils.NewErrValidation("file too large: %d", fHeader.Size)
	}
	ext := strings.ToLower(filepath.Ext(fHeader.Filename))
	if !utils.SupportMediaExt(ext) {
		return utils.NewErrValidation("unsupported file extension: %s", ext)
	}
	// octet-stream means the client did not detect a type, the extension check stands
	mime := fHeader.Header.Get(echo.HeaderContentType)
	if mime != "" && mime != "application/octet-stream" && !utils.SupportMimeType(mime) {
		return utils.NewErrValidation("unsupported media type: %s", mime)
	}
	return nil
}

func toAPIClip(cl *persistence.Clip) api.ClipData {
	return api.ClipData{ID: cl.ID, MediaID: cl.MediaID, StartTime: cl.StartTime, EndTime: cl.EndTime,
		Reason: cl.Reason, Excerpt: cl.Excerpt, Tags: cl.Tags, Status: cl.Status,
		URL: utils.FromSQLStr(cl.RenderedURL), ThumbnailURL: utils.FromSQLStr(cl.ThumbnailURL)}
}

func userID(c echo.Context) string {
	if id := c.Request().Header.Get(userIDHeader); id != "" {
		return id
	}
	return "anonymous"
}

func userTier(c echo.Context) string {
	if t := c.Request().Header.Get(tierHeader); t != "" {
		return t
	}
	return api.TierFree
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	handler := takeFirst(form.File[paramName], nil)
	if handler == nil {
		return nil, nil, http.ErrMissingFile
	}
	file, err := handler.Open()
	return file, handler, err
}
