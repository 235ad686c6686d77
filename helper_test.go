package backtest

import (
	"time"

	"github.com/etnz/backtest/date"
)

// fillPrices adds a constant close price for ticker on every day of the
// range, a trivial but fully deterministic trading calendar.
func fillPrices(f *Feed, ticker string, rng date.Range, price float64) {
	for on := rng.From; !on.After(rng.To); on = on.Add(1) {
		f.AddPrice(ticker, on, price)
	}
}

// fillPricesFunc adds a close price computed per day.
func fillPricesFunc(f *Feed, ticker string, rng date.Range, price func(on date.Date) float64) {
	for on := rng.From; !on.After(rng.To); on = on.Add(1) {
		f.AddPrice(ticker, on, price(on))
	}
}

func day(y int, m time.Month, d int) date.Date { return date.New(y, m, d) }

// usd is a shorthand for Money in the test currency.
func usd(v float64) Money { return M(v, "USD") }

// moneyEquals compares two monetary values within a cent.
func moneyEquals(a, b Money) bool {
	diff := a.Sub(b)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	return diff.LessThanOrEqual(usd(0.01))
}
