package eodhd

import (
	"fmt"
	"net/url"

	"github.com/etnz/backtest/date"
)

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code              string    `json:"Code"`
	Exchange          string    `json:"Exchange"`
	Name              string    `json:"Name"`
	Type              string    `json:"Type"`
	Country           string    `json:"Country"`
	Currency          string    `json:"Currency"`
	ISIN              string    `json:"ISIN"`
	PreviousClose     float64   `json:"previousClose"`
	PreviousCloseDate date.Date `json:"previousCloseDate"`
}

// Symbol returns the EODHD symbol of a search result, usable as an
// instrument name in a run configuration.
func (r SearchResult) Symbol() string { return r.Code + "." + r.Exchange }

// Search searches for securities via the EOD Historical Data API.
func Search(apiKey string, searchTerm string) ([]SearchResult, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/search/%s?api_token=%s&fmt=json", url.PathEscape(searchTerm), url.QueryEscape(apiKey))

	var results []SearchResult
	if err := jwget(newDailyCachingClient(), addr, &results); err != nil {
		return nil, err
	}
	return results, nil
}
