package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/eodhd"
)

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	configFile string
	outputFile string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch market data from EODHD into a feed file" }
func (*fetchCmd) Usage() string {
	return `bt fetch [-c <config>] [-o <feed>]

  Fetches daily closes and dividends for every instrument of the run
  configuration, over its date range, and writes the feed as JSONL.
  The feed file is git-friendly: fetch once, commit it, replay offline.

  The EODHD API key is read from the EODHD_API_KEY environment variable.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "Run configuration file (JSON).")
	f.StringVar(&c.outputFile, "o", defaultFeedFile, "Feed file to write (JSONL).")
}

func (c *fetchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key, err := apiKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	cfg, err := loadConfig(c.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := cfg.Validate(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	instruments := make([]string, 0, len(cfg.Targets))
	for instrument := range cfg.Targets {
		instruments = append(instruments, instrument)
	}

	feed, err := eodhd.Fetch(key, cfg.Currency, instruments, cfg.Range())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	out, err := os.Create(c.outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.outputFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	if err := backtest.EncodeFeed(out, feed); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.outputFile, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Feed for %d instruments written to %s\n", len(instruments), c.outputFile)
	return subcommands.ExitSuccess
}
