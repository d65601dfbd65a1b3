package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"portfoliotracker/internal/util"

	"github.com/google/subcommands"
)

type encryptCmd struct {
	decrypt bool
}

func (*encryptCmd) Name() string     { return "encrypt" }
func (*encryptCmd) Synopsis() string { return "seal or open an exchange secret with the app key" }
func (*encryptCmd) Usage() string {
	return `encrypt [-d] < secret

  Reads one line from stdin and prints it sealed with app.secret-key, the form stored in api_keys.
  With -d the line is opened instead.
`
}

func (c *encryptCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.decrypt, "d", false, "Decrypt instead of encrypt.")
}

func (c *encryptCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {

	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cipher, err := util.NewCipher(conf.App.SecretKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		fmt.Fprintln(os.Stderr, "Error: nothing to read on stdin.")
		return subcommands.ExitUsageError
	}

	run := cipher.Encrypt
	if c.decrypt {
		run = cipher.Decrypt
	}
	out, err := run(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Println(out)
	return subcommands.ExitSuccess
}
