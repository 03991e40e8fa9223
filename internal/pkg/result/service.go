package result

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileReader loads file by name
type FileReader interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// DB resolves clip and media records to stored object names
type DB interface {
	LoadClip(ctx context.Context, id string) (*persistence.Clip, error)
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
}

// Data keeps data required for service work
type Data struct {
	Port   int
	Reader FileReader
	DB     DB
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP repurpose result service")

	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 5 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Reader == nil {
		return errors.New("no file reader")
	}
	if data.DB == nil {
		return errors.New("no db")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("repurpose_result", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/clip/:id", downloadClip(data))
	e.HEAD("/clip/:id", downloadClip(data))
	e.GET("/clip/:id/thumbnail", downloadThumbnail(data))
	e.HEAD("/clip/:id/thumbnail", downloadThumbnail(data))
	e.GET("/media/:id/file", downloadMedia(data))
	e.HEAD("/media/:id/file", downloadMedia(data))
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

func downloadClip(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("downloadClip method")()

		clip, err := loadClip(c, data)
		if err != nil {
			return err
		}
		if !clip.RenderedURL.Valid || clip.RenderedURL.String == "" {
			return echo.NewHTTPError(http.StatusNotFound, "Clip not rendered")
		}
		return serveFile(c, data, clipObjectName(clip))
	}
}

func downloadThumbnail(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("downloadThumbnail method")()

		clip, err := loadClip(c, data)
		if err != nil {
			return err
		}
		if !clip.ThumbnailURL.Valid || clip.ThumbnailURL.String == "" {
			return echo.NewHTTPError(http.StatusNotFound, "No thumbnail")
		}
		return serveFile(c, data, fmt.Sprintf("thumbs/%s.jpg", clip.ID))
	}
}

func downloadMedia(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("downloadMedia method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		media, err := data.DB.LoadMedia(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't load media")
		}
		if media == nil {
			return echo.NewHTTPError(http.StatusNotFound, "No media by ID")
		}
		return serveFile(c, data, utils.MakeFileName(media.ID, path.Base(media.SourceURL)))
	}
}

func loadClip(c echo.Context, data *Data) (*persistence.Clip, error) {
	id := c.Param("id")
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No ID")
	}
	clip, err := data.DB.LoadClip(c.Request().Context(), id)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Can't load clip")
	}
	if clip == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No clip by ID")
	}
	return clip, nil
}

// clipObjectName must match the naming used by the render worker
func clipObjectName(clip *persistence.Clip) string {
	return fmt.Sprintf("clips/%s_%.0f-%.0f.mp4", clip.ID, clip.StartTime, clip.EndTime)
}

func serveFile(c echo.Context, data *Data, name string) error {
	goapp.Log.Info().Str("file", name).Msg("loading")
	file, err := data.Reader.LoadFile(c.Request().Context(), name)
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		goapp.Log.Error().Msg(`file does implement "interface{ Stat() (fs.FileInfo, error)"`)
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}
	stat, err := stGetter.Stat()
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}

	w := c.Response()
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(stat.Name()))
	http.ServeContent(w, c.Request(), stat.Name(), stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
