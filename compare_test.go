package backtest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/etnz/backtest/date"
)

func TestCompare_ResultsInConfigOrder(t *testing.T) {
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.December, 31)}
	feed := NewFeed("USD")
	fillPrices(feed, "A", rng, 100)
	fillPrices(feed, "B", rng, 100)

	frugal := testConfig(rng.From, rng.To)
	frugal.Name = "frugal"
	frugal.WithdrawalRate = 0.02

	spender := testConfig(rng.From, rng.To)
	spender.Name = "spender"
	spender.WithdrawalRate = 0.10

	results, err := Compare(feed, frugal, spender)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "frugal" || results[1].Name != "spender" {
		t.Errorf("results out of order: %q, %q", results[0].Name, results[1].Name)
	}
	// flat prices: the only difference is how much was withdrawn.
	a := results[0].Metrics.FinalValue
	b := results[1].Metrics.FinalValue
	if !b.LessThan(a) {
		t.Errorf("spender final value %s is not below frugal %s", b, a)
	}
}

func TestCompare_RejectsAnyInvalidConfig(t *testing.T) {
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.December, 31)}
	feed := NewFeed("USD")
	fillPrices(feed, "A", rng, 100)
	fillPrices(feed, "B", rng, 100)

	good := testConfig(rng.From, rng.To)
	bad := testConfig(rng.From, rng.To)
	bad.Name = "lopsided"
	bad.Targets = map[string]float64{"A": 0.9, "B": 0.3}

	if _, err := Compare(feed, good, bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Compare() error = %v, want ErrInvalidConfig", err)
	} else if !strings.Contains(err.Error(), "lopsided") {
		t.Errorf("error %q does not name the offending configuration", err)
	}
}
