package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/backtest/eodhd"
)

// searchCmd holds the flags for the 'search' subcommand.
type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search EODHD for instruments" }
func (*searchCmd) Usage() string {
	return `bt search <term>

  Searches the EODHD database and displays the matching instruments with
  the symbol to use in a run configuration.

Usage Examples:
$ bt search "S&P 500"
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {}

func (c *searchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: search needs a term")
		return subcommands.ExitUsageError
	}
	key, err := apiKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	results, err := eodhd.Search(key, strings.Join(f.Args(), " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	fmt.Fprint(&b, "# Search Results\n\n")
	fmt.Fprintln(&b, "| Symbol | Name | Type | Currency | Previous Close |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %.2f (%s) |\n",
			r.Symbol(), r.Name, r.Type, r.Currency, r.PreviousClose, r.PreviousCloseDate)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
