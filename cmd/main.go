package main

import (
	"context"
	"flag"
	"os"
	"path"

	"portfoliotracker/config"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&migrateCmd{}, "")
	commander.Register(&encryptCmd{}, "")
	commander.Register(&nonceCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// loadConfig reads the configuration and applies its log level to every logger created afterwards.
func loadConfig() (*config.Config, error) {

	conf, err := config.NewConfig()
	if err != nil {
		return nil, err
	}

	level, err := conf.LogLevel()
	if err != nil {
		log.Warn().Err(err).Msg("Unknown log level, using info")
	}
	zerolog.SetGlobalLevel(level)

	return conf, nil
}
