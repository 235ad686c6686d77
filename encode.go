package backtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/backtest/date"
)

// This file persists a feed as JSONL, one price or dividend point per line,
// human-readable and git-friendly, so fetched market data can be committed
// and runs replayed offline, byte for byte.

// jpoint is the line format: a close price or an ex-dividend amount.
type jpoint struct {
	Ticker   string    `json:"ticker"`
	On       date.Date `json:"on"`
	Close    *float64  `json:"close,omitempty"`
	Dividend *float64  `json:"dividend,omitempty"`
}

// EncodeFeed writes the feed as JSONL: all points of a ticker grouped
// together, prices then dividends, in chronological order.
func EncodeFeed(w io.Writer, f *Feed) error {
	enc := json.NewEncoder(w)
	for _, ticker := range f.Tickers() {
		for on, close := range f.Prices(ticker) {
			c := close
			if err := enc.Encode(jpoint{Ticker: ticker, On: on, Close: &c}); err != nil {
				return fmt.Errorf("cannot encode price of %q: %w", ticker, err)
			}
		}
		for on, div := range f.Dividends(ticker) {
			d := div
			if err := enc.Encode(jpoint{Ticker: ticker, On: on, Dividend: &d}); err != nil {
				return fmt.Errorf("cannot encode dividend of %q: %w", ticker, err)
			}
		}
	}
	return nil
}

// DecodeFeed reads a JSONL feed previously written by EncodeFeed.
// filename is for error messages only.
func DecodeFeed(filename string, r io.Reader, currency string) (*Feed, error) {
	f := NewFeed(currency)
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var p jpoint
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("format error in %q line %d: %w", filename, n, err)
		}
		if p.Ticker == "" {
			return nil, fmt.Errorf("format error in %q line %d: missing ticker", filename, n)
		}
		switch {
		case p.Close != nil:
			f.AddPrice(p.Ticker, p.On, *p.Close)
		case p.Dividend != nil:
			f.AddDividend(p.Ticker, p.On, *p.Dividend)
		default:
			return nil, fmt.Errorf("format error in %q line %d: neither close nor dividend", filename, n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", filename, err)
	}
	return f, nil
}
