package main

import (
	"context"
	"os"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/consul"
	"github.com/faridopz/repurpose-smart/internal/pkg/content"
	"github.com/faridopz/repurpose-smart/internal/pkg/flow"
	"github.com/faridopz/repurpose-smart/internal/pkg/llm"
	"github.com/faridopz/repurpose-smart/internal/pkg/postgres"
	capi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

// runs the full pipeline for one uploaded media: transcribe, suggest
// highlights, generate content. Progress is pushed to the status queue.
func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	mediaID := cfg.GetString("media.id")
	if mediaID == "" && len(os.Args) > 1 {
		mediaID = os.Args[len(os.Args)-1]
	}
	if mediaID == "" {
		goapp.Log.Fatal().Msg("no media ID, pass media.id or an argument")
	}

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	trProvider, err := consul.NewProvider(&capi.Config{Address: cfg.GetString("consul.url")},
		cfg.GetString("consul.srvName"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber provider")
	}
	ctxConsul, cancelConsul := context.WithCancel(ctx)
	defer cancelConsul()
	if _, err := trProvider.StartRegistryLoop(ctxConsul, cfg.GetDuration("consul.checkInterval")); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start consul check loop")
	}

	llmClient, err := llm.NewClient(cfg.GetString("llm.url"), cfg.GetString("llm.apiKey"),
		cfg.GetString("llm.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init llm client")
	}
	gen, err := content.NewGenerator(llmClient)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init content generator")
	}

	pr, err := flow.NewProcessor(db, trProvider, gen, sender)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init processor")
	}

	printBanner()

	if err := pr.Process(ctx, mediaID); err != nil {
		goapp.Log.Fatal().Err(err).Str("ID", mediaID).Msg("pipeline failed")
	}
	goapp.Log.Info().Str("ID", mediaID).Msg("pipeline done")
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
	cl.Printf(banner, cl.Yellow("flow"), cl.Red(version), cl.Green("https://github.com/faridopz/repurpose-smart"))
}
