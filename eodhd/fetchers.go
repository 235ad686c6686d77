package eodhd

import (
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"github.com/etnz/backtest/date"
)

// This file contains the functions that access the EODHD API endpoints.

// eodBar is one day of the end-of-day endpoint response.
type eodBar struct {
	Date  date.Date `json:"date"`
	Close float64   `json:"close"`
}

// fetchCloses returns the daily closing prices of a symbol.
// The EODHD symbol format is "SYMBOL.EXCHANGECODE".
func fetchCloses(apiKey, symbol string, rng date.Range) ([]eodBar, error) {
	// https://eodhd.com/api/eod/MCD.US?api_token=demo&fmt=json
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	  },
	// ... ]
	// bounds are included in the response.
	addr := fmt.Sprintf("https://eodhd.com/api/eod/%s?fmt=json&api_token=%s&from=%s&to=%s", symbol, apiKey, rng.From, rng.To)

	bars := make([]eodBar, 0)
	if err := jwget(newDailyCachingClient(), addr, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// eodDividend is one entry of the dividend endpoint response. Date is the
// ex-dividend date, see https://eodhd.com/financial-apis/api-splits-dividends
type eodDividend struct {
	Date  date.Date `json:"date"`
	Value float64   `json:"value"`
}

// fetchDividends returns the dividend history of a symbol.
func fetchDividends(apiKey, symbol string, rng date.Range) ([]eodDividend, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/div/%s?fmt=json&api_token=%s&from=%s&to=%s", symbol, apiKey, rng.From, rng.To)

	divs := make([]eodDividend, 0)
	if err := jwget(newDailyCachingClient(), addr, &divs); err != nil {
		return nil, err
	}
	return divs, nil
}

// Quote returns the latest live price of an instrument. Live quotes are
// never cached.
func Quote(apiKey, instrument string) (float64, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/real-time/%s?fmt=json&api_token=%s", symbol(instrument), apiKey)

	var doc any
	if err := jwget(newLiveClient(), addr, &doc); err != nil {
		return 0, err
	}
	return parseQuote(doc)
}

// parseQuote extracts the close of a real-time quote document. The endpoint
// returns "NA" instead of a number when the market has no data.
func parseQuote(doc any) (float64, error) {
	v, err := jsonpath.Get("$.close", doc)
	if err != nil {
		return 0, fmt.Errorf("no close in quote: %w", err)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("no live close in quote, got %v", v)
	}
	return f, nil
}
