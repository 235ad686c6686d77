package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/genai"

	"github.com/etnz/backtest/agent"
)

// assistCmd holds the flags for the 'assist' subcommand.
type assistCmd struct {
	configFile string
	feedFile   string
}

func (*assistCmd) Name() string { return "assist" }
func (*assistCmd) Synopsis() string {
	return "start an interactive session with the AI analyst of a backtest"
}
func (*assistCmd) Usage() string {
	return `bt assist [-c <config>] [-f <feed>] [question]

  Runs one simulation and starts an interactive session with an AI analyst
  grounded on its reports and event log. Ask why a year underperformed, what
  a tax payment cost, or where the shortfalls came from.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "c", defaultConfigFile, "Run configuration file (JSON).")
	f.StringVar(&c.feedFile, "f", defaultFeedFile, "Market data feed file (JSONL).")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := ""
	if f.NArg() > 0 {
		initialPrompt = strings.Join(f.Args(), " ")
	}

	result, err := simulate(c.configFile, c.feedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	a := agent.New(os.Stdout, os.Stdin, agent.NewAnalyst(result))
	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
