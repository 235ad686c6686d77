package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// initCmd holds the flags for the 'init' subcommand.
type initCmd struct {
	force bool
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "write the default run configuration file" }
func (*initCmd) Usage() string {
	return `bt init [-force]

  Writes the default run configuration (60% SPY, 30% QQQ, 10% BIL over the
  last decade) to ` + defaultConfigFile + `, as a starting point to edit.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "Overwrite an existing configuration file.")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.force {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			fmt.Fprintf(os.Stderr, "Error: %s already exists, use -force to overwrite\n", defaultConfigFile)
			return subcommands.ExitFailure
		}
	}

	out, err := os.Create(defaultConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", defaultConfigFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(defaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", defaultConfigFile, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Default configuration written to %s\n", defaultConfigFile)
	return subcommands.ExitSuccess
}
