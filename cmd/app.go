// Package cmd implements the CLI application to run portfolio backtests.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&runCmd{}, "simulation")
	c.Register(&compareCmd{}, "simulation")
	c.Register(&annualCmd{}, "simulation")
	c.Register(&eventsCmd{}, "simulation")

	c.Register(&fetchCmd{}, "market data")
	c.Register(&searchCmd{}, "market data")
	c.Register(&quoteCmd{}, "market data")

	c.Register(&initCmd{}, "configuration")

	c.Register(&topicCmd{}, "documentation")
	c.Register(&assistCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use defaults as constants.

const (
	defaultConfigFile = "backtest.json"
	defaultFeedFile   = "feed.jsonl"
)

// loadConfig reads the run configuration from a JSON file. A missing default
// file is not an error: the canonical default configuration over the last
// decade is used instead.
func loadConfig(filename string) (backtest.Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && filename == defaultConfigFile {
			return defaultConfig(), nil
		}
		return backtest.Config{}, fmt.Errorf("cannot open configuration %q: %w", filename, err)
	}
	defer f.Close()

	cfg, err := backtest.DecodeConfig(f)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("in configuration %q: %w", filename, err)
	}
	if cfg.Start == (date.Date{}) || cfg.End == (date.Date{}) {
		cfg.Start, cfg.End = defaultRange()
	}
	return cfg, nil
}

// defaultConfig is the canonical configuration simulated over the last decade.
func defaultConfig() backtest.Config {
	cfg := backtest.DefaultConfig()
	cfg.Start, cfg.End = defaultRange()
	return cfg
}

func defaultRange() (from, to date.Date) {
	to = date.Today().Add(-1)
	return date.New(to.Year()-10, time.January, 1), to
}

// loadFeed reads the market data feed written by `bt fetch`.
func loadFeed(filename, currency string) (*backtest.Feed, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open feed %q (run `bt fetch` first): %w", filename, err)
	}
	defer f.Close()
	return backtest.DecodeFeed(filename, f, currency)
}

// simulate loads the configuration and feed, and runs one simulation.
func simulate(configFile, feedFile string) (*backtest.Result, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	feed, err := loadFeed(feedFile, cfg.Currency)
	if err != nil {
		return nil, err
	}
	return backtest.Run(cfg, feed)
}

// apiKey returns the EODHD API key from the environment.
func apiKey() (string, error) {
	key := os.Getenv("EODHD_API_KEY")
	if key == "" {
		return "", fmt.Errorf("EODHD_API_KEY is not set")
	}
	return key, nil
}
