package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/ffmpeg"
	"github.com/faridopz/repurpose-smart/internal/pkg/miniofs"
	"github.com/faridopz/repurpose-smart/internal/pkg/postgres"
	"github.com/faridopz/repurpose-smart/internal/pkg/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = defaultV(cfg.GetInt("worker.count"), 2)
	data.Testing = cfg.GetBool("worker.testing")
	data.WorkDir = defaultV(cfg.GetString("worker.dir"), os.TempDir())
	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		SSL: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	data.Cutter, err = ffmpeg.NewCutter(defaultV(cfg.GetString("ffmpeg.path"), "ffmpeg"),
		defaultV(cfg.GetString("ffmpeg.probePath"), "ffprobe"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init cutter")
	}

	printBanner()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func defaultV[T comparable](v, def T) T {
	var empty T
	if v == empty {
		return def
	}
	return v
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
    ____
   / __ \___  ____  __  __________  ____  ________
  / /_/ / _ \/ __ \/ / / / ___/ __ \/ __ \/ ___/ _ \
 / _, _/  __/ /_/ / /_/ / /  / /_/ / /_/ (__  )  __/
/_/ |_|\___/ .___/\__,_/_/  / .___/\____/____/\___/
          /_/              /_/

  %s service v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Yellow("render worker"), cl.Red(version), cl.Green("https://github.com/faridopz/repurpose-smart"))
}
