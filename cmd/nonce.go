package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"portfoliotracker/internal/db"
	"portfoliotracker/scrape"

	"github.com/google/subcommands"
)

type nonceCmd struct {
	apiKey string
}

func (*nonceCmd) Name() string     { return "nonce" }
func (*nonceCmd) Synopsis() string { return "reserve and print the next exchange nonce for an api key" }
func (*nonceCmd) Usage() string {
	return `nonce -k <api key>

  Reserves the next nonce through the shared nonce store, the same way a balance request does.
  Useful when the exchange keeps answering EAPI:Invalid nonce.
`
}

func (c *nonceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKey, "k", "", "Exchange api key.")
}

func (c *nonceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {

	if c.apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: -k is required.")
		return subcommands.ExitUsageError
	}

	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	stg, err := db.NewStorage(conf.DbConfig(), conf.RedisConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Println(scrape.NewNoncer(stg).Next(ctx, c.apiKey))
	return subcommands.ExitSuccess
}
