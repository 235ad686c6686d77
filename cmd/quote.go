package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/backtest/eodhd"
)

// quoteCmd holds the flags for the 'quote' subcommand.
type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "display the live price of instruments" }
func (*quoteCmd) Usage() string {
	return `bt quote <instrument>...

  Displays the latest live price of each instrument, straight from EODHD,
  bypassing the disk cache.

Usage Examples:
$ bt quote SPY QQQ
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {}

func (c *quoteCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: quote needs at least one instrument")
		return subcommands.ExitUsageError
	}
	key, err := apiKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	status := subcommands.ExitSuccess
	for _, instrument := range f.Args() {
		price, err := eodhd.Quote(key, instrument)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error quoting %s: %v\n", instrument, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s\t%.2f\n", instrument, price)
	}
	return status
}
