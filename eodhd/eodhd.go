// Package eodhd fetches end-of-day closes and dividend histories from the
// EOD Historical Data API (https://eodhd.com) into a backtest feed.
//
// Responses are cached on disk so that repeated runs over the same day do
// not hit the API again.
package eodhd

import (
	"fmt"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
)

// Fetch builds a feed for the given instruments over the given range.
//
// Instruments are EODHD symbols in the "SYMBOL.EXCHANGE" format; a bare
// symbol defaults to the US exchange. The feed is keyed by the instrument
// name as given, so it matches the run configuration verbatim.
func Fetch(apiKey string, currency string, instruments []string, rng date.Range) (*backtest.Feed, error) {
	feed := backtest.NewFeed(currency)
	for _, instrument := range instruments {
		sym := symbol(instrument)

		bars, err := fetchCloses(apiKey, sym, rng)
		if err != nil {
			return nil, fmt.Errorf("cannot fetch prices of %s: %w", instrument, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("no price for %s in %s", instrument, rng)
		}
		for _, bar := range bars {
			feed.AddPrice(instrument, bar.Date, bar.Close)
		}

		divs, err := fetchDividends(apiKey, sym, rng)
		if err != nil {
			return nil, fmt.Errorf("cannot fetch dividends of %s: %w", instrument, err)
		}
		for _, div := range divs {
			feed.AddDividend(instrument, div.Date, div.Value)
		}
	}
	return feed, nil
}

// symbol returns the EODHD symbol for an instrument, defaulting the exchange
// to US for bare tickers like "SPY".
func symbol(instrument string) string {
	if strings.Contains(instrument, ".") {
		return instrument
	}
	return instrument + ".US"
}
