package main

import (
	"context"
	"flag"

	tracker "portfoliotracker"
	"portfoliotracker/app"
	"portfoliotracker/config"
	"portfoliotracker/internal/ai"
	"portfoliotracker/internal/auth"
	"portfoliotracker/internal/db"
	"portfoliotracker/internal/util"
	"portfoliotracker/scrape"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type serveCmd struct {
	port    int
	migrate bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the portfolio tracker API" }
func (*serveCmd) Usage() string {
	return `serve [-port <port>] [-migrate]

  Starts the HTTP API. Configuration comes from the embedded config.yaml and environment overrides.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.port, "port", 0, "Listen port. Overrides app.port.")
	f.BoolVar(&c.migrate, "migrate", false, "Migrate tables before serving.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {

	conf, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("Config load failed")
		return subcommands.ExitFailure
	}

	stg, err := db.NewStorage(conf.DbConfig(), conf.RedisConfig())
	if err != nil {
		log.Error().Err(err).Msg("Storage init failed")
		return subcommands.ExitFailure
	}
	if c.migrate {
		if err := stg.Migrate(); err != nil {
			log.Error().Err(err).Msg("Migration failed")
			return subcommands.ExitFailure
		}
	}

	services, err := build(ctx, conf, stg)
	if err != nil {
		log.Error().Err(err).Msg("Service init failed")
		return subcommands.ExitFailure
	}

	port := conf.App.Port
	if c.port > 0 {
		port = c.port
	}

	log.Info().Int("port", port).Msg("Serving")
	if err := app.Run(port, conf.App.AllowOrigins, services); err != nil {
		log.Error().Err(err).Msg("Server stopped")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func build(ctx context.Context, conf *config.Config, stg *db.Storage) (app.Services, error) {

	table, err := conf.AssetTable()
	if err != nil {
		return app.Services{}, err
	}

	opts := []scrape.Option{
		scrape.WithKraken(conf.KrakenConfig(), scrape.NewNoncer(stg)),
		scrape.WithYahoo(conf.YahooConfig()),
		scrape.WithAlpaca(conf.AlpacaOpts()),
		scrape.WithNews(conf.NewsFeedURL()),
	}
	if ttl := conf.HistoryCacheTTL(); ttl > 0 {
		opts = append(opts, scrape.WithCache(stg, ttl))
	}
	scraper, err := scrape.NewScraper(opts...)
	if err != nil {
		return app.Services{}, err
	}

	cipher, err := util.NewCipher(conf.App.SecretKey)
	if err != nil {
		return app.Services{}, err
	}

	verifier, err := auth.New(conf.AuthConfig())
	if err != nil {
		return app.Services{}, err
	}

	chain, err := ai.New(ctx, conf.AIConfig())
	if err != nil {
		return app.Services{}, err
	}
	if aic := conf.AIConfig(); aic.OpenAIKey == "" && aic.GeminiKey == "" {
		log.Warn().Msg("No AI provider configured. AI routes will answer 500")
	}

	t := tracker.NewTracker(tracker.TrackerConfig{
		Storage: stg,
		Pricer:  scraper,
		Cipher:  cipher,
		Table:   table,
	})

	return app.Services{
		Tracker:  t,
		Storage:  stg,
		Verifier: verifier,
		Screener: ai.NewScreener(chain, scraper, table.IsCryptoSymbol),
		Reviewer: ai.NewReviewer(chain),
	}, nil
}
