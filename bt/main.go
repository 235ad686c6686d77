// bt runs portfolio backtests with realistic taxes: dividend withholding at
// source and a deferred annual capital-gains settlement.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/backtest/cmd"
)

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion handles shell completion requests and returns only when the
// invocation is a regular one.
func completion() {
	configs := predict.Files("*.json")
	feeds := predict.Files("*.jsonl")
	simFlags := map[string]complete.Predictor{
		"c": configs,
		"f": feeds,
	}

	bt := &complete.Command{
		Sub: map[string]*complete.Command{
			"run": {Flags: map[string]complete.Predictor{
				"c": configs, "f": feeds, "o": predict.Files("*.json"), "annual": predict.Nothing,
			}},
			"compare": {Flags: map[string]complete.Predictor{"f": feeds}, Args: configs},
			"annual":  {Flags: simFlags},
			"events": {Flags: map[string]complete.Predictor{
				"c": configs, "f": feeds, "shortfalls": predict.Nothing,
			}},
			"fetch":  {Flags: map[string]complete.Predictor{"c": configs, "o": feeds}},
			"search": {},
			"quote":  {},
			"init":   {Flags: map[string]complete.Predictor{"force": predict.Nothing}},
			"topic": {Args: predict.Set{
				"tax-model", "rebalancing", "withdrawals", "metrics", "feeds", "readme", "*",
			}},
			"assist": {Flags: simFlags},
		},
	}
	bt.Complete("bt")
}
