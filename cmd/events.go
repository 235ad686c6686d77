package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/backtest/renderer"
)

// eventsCmd holds the flags for the 'events' subcommand.
type eventsCmd struct {
	configFile string
	feedFile   string
	shortfalls bool
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "display the full event log of a backtest" }
func (*eventsCmd) Usage() string {
	return `bt events [-c <config>] [-f <feed>] [-shortfalls]

  Runs one simulation and displays its complete event log: every trade,
  dividend, withholding, withdrawal, tax settlement and tax payment, in
  chronological order. With -shortfalls only the liquidity shortfalls are
  shown.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "Run configuration file (JSON).")
	f.StringVar(&c.feedFile, "f", defaultFeedFile, "Market data feed file (JSONL).")
	f.BoolVar(&c.shortfalls, "shortfalls", false, "Only display liquidity shortfalls.")
}

func (c *eventsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, err := simulate(c.configFile, c.feedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.shortfalls {
		shortfalls := result.Shortfalls()
		if len(shortfalls) == 0 {
			fmt.Println("No shortfall: every withdrawal and tax payment was fully funded.")
			return subcommands.ExitSuccess
		}
		var b strings.Builder
		fmt.Fprint(&b, "# Shortfalls\n\n")
		fmt.Fprintln(&b, "| Date | Reason | Requested | Funded | Missing |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
		for _, s := range shortfalls {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", s.On, s.Reason, s.Requested, s.Funded, s.Missing())
		}
		printMarkdown(b.String())
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.EventsMarkdown(result))
	return subcommands.ExitSuccess
}
