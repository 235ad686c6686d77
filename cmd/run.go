package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/backtest/renderer"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	configFile string
	feedFile   string
	outputFile string
	annual     bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run one backtest and display its summary report" }
func (*runCmd) Usage() string {
	return `bt run [-c <config>] [-f <feed>] [-o <result.json>] [-annual]

  Runs one simulation over the market data feed and displays the summary
  report. With -annual the per-year table is appended. With -o the full
  result (metrics, snapshots, event log) is also written as JSON.

Usage Examples:
# Run the default configuration over feed.jsonl.
$ bt run

# Run a custom configuration and keep the full result.
$ bt run -c retirement.json -o result.json
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "Run configuration file (JSON).")
	f.StringVar(&c.feedFile, "f", defaultFeedFile, "Market data feed file (JSONL).")
	f.StringVar(&c.outputFile, "o", "", "Write the full result as JSON to this file.")
	f.BoolVar(&c.annual, "annual", false, "Also display the per-year table.")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, err := simulate(c.configFile, c.feedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	md := renderer.SummaryMarkdown(result)
	if c.annual {
		md += "\n" + renderer.AnnualMarkdown(result)
	}
	printMarkdown(md)

	if c.outputFile != "" {
		out, err := os.Create(c.outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.outputFile, err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		if err := result.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.outputFile, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", c.outputFile)
	}
	return subcommands.ExitSuccess
}
