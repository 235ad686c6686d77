package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/backtest/renderer"
)

// annualCmd holds the flags for the 'annual' subcommand.
type annualCmd struct {
	configFile string
	feedFile   string
}

func (*annualCmd) Name() string     { return "annual" }
func (*annualCmd) Synopsis() string { return "display the per-year report of a backtest" }
func (*annualCmd) Usage() string {
	return `bt annual [-c <config>] [-f <feed>]

  Runs one simulation and displays the per-year table: start and end values,
  yearly return, withdrawals, dividends, the capital-gains tax paid that
  January, and transaction costs.
`
}

func (c *annualCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "Run configuration file (JSON).")
	f.StringVar(&c.feedFile, "f", defaultFeedFile, "Market data feed file (JSONL).")
}

func (c *annualCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, err := simulate(c.configFile, c.feedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.AnnualMarkdown(result))
	return subcommands.ExitSuccess
}
