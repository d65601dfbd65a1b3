package main

import (
	"context"
	"flag"

	"portfoliotracker/internal/db"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database tables" }
func (*migrateCmd) Usage() string {
	return `migrate

  Runs the schema migration against the configured database and exits.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {

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

	if err := stg.Migrate(); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
