package backtest

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/etnz/backtest/date"
)

// Feed holds the per-instrument daily close prices and ex-dividend amounts a
// simulation consumes. It is read-only once built: concurrent runs may share
// a single Feed.
//
// Prices are stored as raw float64 series the way the provider reports them,
// and converted to exact Money at the point of use.
type Feed struct {
	currency  string
	tickers   []string // sorted, for deterministic iteration
	prices    map[string]*date.History[float64]
	dividends map[string]*date.History[float64]
}

// NewFeed returns an empty feed quoting all instruments in the given currency.
func NewFeed(currency string) *Feed {
	return &Feed{
		currency:  currency,
		prices:    make(map[string]*date.History[float64]),
		dividends: make(map[string]*date.History[float64]),
	}
}

// Currency returns the quote currency of the feed.
func (f *Feed) Currency() string { return f.currency }

// Has reports whether the feed carries any price for ticker.
func (f *Feed) Has(ticker string) bool {
	_, ok := f.prices[ticker]
	return ok
}

// Tickers returns the instruments of the feed in lexical order.
func (f *Feed) Tickers() []string { return slices.Clone(f.tickers) }

func (f *Feed) series(ticker string) *date.History[float64] {
	h, ok := f.prices[ticker]
	if !ok {
		h = &date.History[float64]{}
		f.prices[ticker] = h
		i := sort.SearchStrings(f.tickers, ticker)
		f.tickers = slices.Insert(f.tickers, i, ticker)
	}
	return h
}

// AddPrice records the close price of ticker on a given day.
func (f *Feed) AddPrice(ticker string, on date.Date, close float64) {
	f.series(ticker).Append(on, close)
}

// AddDividend records an ex-dividend gross amount per share of ticker.
func (f *Feed) AddDividend(ticker string, on date.Date, perShare float64) {
	h, ok := f.dividends[ticker]
	if !ok {
		h = &date.History[float64]{}
		f.dividends[ticker] = h
	}
	h.Append(on, perShare)
}

// Price returns the close price reported exactly on that day.
// Trades and dividends only execute on days the feed explicitly reports.
func (f *Feed) Price(ticker string, on date.Date) (Money, bool) {
	h, ok := f.prices[ticker]
	if !ok {
		return Money{}, false
	}
	v, ok := h.Get(on)
	if !ok {
		return Money{}, false
	}
	return M(v, f.currency), true
}

// PriceAsOf returns the last known close price on or before that day.
// This forward-fill is for valuation only, never for execution.
func (f *Feed) PriceAsOf(ticker string, on date.Date) (Money, bool) {
	h, ok := f.prices[ticker]
	if !ok {
		return Money{}, false
	}
	v, ok := h.ValueAsOf(on)
	if !ok {
		return Money{}, false
	}
	return M(v, f.currency), true
}

// Dividend returns the gross dividend per share going ex on that day, if any.
func (f *Feed) Dividend(ticker string, on date.Date) (Money, bool) {
	h, ok := f.dividends[ticker]
	if !ok {
		return Money{}, false
	}
	v, ok := h.Get(on)
	if !ok {
		return Money{}, false
	}
	return M(v, f.currency), true
}

// Dividends returns the full dividend series for a ticker.
func (f *Feed) Dividends(ticker string) iter.Seq2[date.Date, float64] {
	h, ok := f.dividends[ticker]
	if !ok {
		h = &date.History[float64]{}
	}
	return h.Values()
}

// Prices returns the full price series for a ticker.
func (f *Feed) Prices(ticker string) iter.Seq2[date.Date, float64] {
	h, ok := f.prices[ticker]
	if !ok {
		h = &date.History[float64]{}
	}
	return h.Values()
}

// TradingDays iterates, in ascending order, over the union of all price
// dates that fall within rng.
func (f *Feed) TradingDays(rng date.Range) iter.Seq[date.Date] {
	histories := make([]*date.History[float64], 0, len(f.tickers))
	for _, t := range f.tickers {
		histories = append(histories, f.prices[t])
	}
	all := date.Iterate(histories...)
	return func(yield func(date.Date) bool) {
		for on := range all {
			if on.Before(rng.From) {
				continue
			}
			if on.After(rng.To) {
				return
			}
			if !yield(on) {
				return
			}
		}
	}
}

// priceOrFail is the engine-side lookup: a missing price at valuation or
// execution time is a data-availability error that aborts the run.
func (f *Feed) priceOrFail(ticker string, on date.Date) (Money, error) {
	p, ok := f.PriceAsOf(ticker, on)
	if !ok {
		return Money{}, fmt.Errorf("no price for %q on or before %s: %w", ticker, on, ErrMissingPrice)
	}
	return p, nil
}
