package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
)

// compareCmd holds the flags for the 'compare' subcommand.
type compareCmd struct {
	feedFile string
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "run several configurations and compare them side by side" }
func (*compareCmd) Usage() string {
	return `bt compare [-f <feed>] <config>...

  Runs every given configuration against the same market data feed, in
  parallel, and displays their metrics side by side.

Usage Examples:
$ bt compare spend3.json spend4.json spend5.json
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.feedFile, "f", defaultFeedFile, "Market data feed file (JSONL).")
}

func (c *compareCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: compare needs at least two configuration files")
		return subcommands.ExitUsageError
	}

	configs := make([]backtest.Config, 0, f.NArg())
	for _, filename := range f.Args() {
		cfg, err := loadConfig(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if cfg.Name == "" {
			cfg.Name = filename
		}
		configs = append(configs, cfg)
	}

	feed, err := loadFeed(c.feedFile, configs[0].Currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	results, err := backtest.Compare(feed, configs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.CompareMarkdown(results))
	return subcommands.ExitSuccess
}
