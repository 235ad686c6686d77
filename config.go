package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/etnz/backtest/date"
)

// weightTolerance is the tolerance used to check that target weights sum to 1.
const weightTolerance = 1e-4

var (
	// ErrInvalidConfig reports a configuration rejected before the simulation starts.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingPrice reports a data-availability failure that aborts a run.
	ErrMissingPrice = errors.New("missing price data")
)

// Config defines one simulation run. All rates are fractions (0.15 means 15%)
// and are fixed for the duration of the run.
type Config struct {
	Name           string             `json:"name,omitempty"`
	InitialCapital float64            `json:"initial_capital"`
	Currency       string             `json:"currency,omitempty"`
	Start          date.Date          `json:"start"`
	End            date.Date          `json:"end"`
	Rebalancing    string             `json:"rebalancing"`     // "quarterly" or "yearly"
	WithdrawalRate float64            `json:"withdrawal_rate"` // annual fraction of portfolio value
	DividendTax    float64            `json:"dividend_tax"`    // withheld at source, same day
	CapitalTax     float64            `json:"capital_tax"`     // settled yearly, paid the next January
	Exemption      float64            `json:"exemption"`       // yearly capital-gains exemption
	CostRate       float64            `json:"cost_rate"`       // flat transaction cost on both legs
	RiskFree       float64            `json:"risk_free"`       // annual risk-free rate for the Sharpe ratio
	Targets        map[string]float64 `json:"targets"`         // instrument -> target weight, summing to 1
}

// DefaultConfig returns the canonical 60/30/10 configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1_000_000,
		Currency:       "USD",
		Rebalancing:    "quarterly",
		WithdrawalRate: 0.05,
		DividendTax:    0.15,
		CapitalTax:     0.22,
		Exemption:      2_000,
		CostRate:       0.002,
		RiskFree:       0.03,
		Targets:        map[string]float64{"SPY": 0.60, "QQQ": 0.30, "BIL": 0.10},
	}
}

// DecodeConfig reads a JSON run configuration, filling in defaults for
// omitted rates.
func DecodeConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	// a targets object in the input must replace the default allocation, not
	// merge into it, so decode into a nil map and restore the default after.
	c.Targets = nil
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("cannot parse run configuration: %w", err)
	}
	if c.Targets == nil {
		c.Targets = DefaultConfig().Targets
	}
	return c, nil
}

// cadence returns the rebalancing cadence as a period.
func (c Config) cadence() (date.Period, error) {
	p, err := date.ParsePeriod(c.Rebalancing)
	if err != nil {
		return p, err
	}
	if p != date.Quarterly && p != date.Yearly {
		return p, fmt.Errorf("rebalancing cadence must be quarterly or yearly, got %q", c.Rebalancing)
	}
	return p, nil
}

// withdrawalPerEvent returns the fraction of portfolio value withdrawn on
// each scheduled event: quarterly cadence spreads the annual rate over four
// withdrawals.
func (c Config) withdrawalPerEvent() float64 {
	if c.Rebalancing == "yearly" {
		return c.WithdrawalRate
	}
	return c.WithdrawalRate / 4
}

// tickers returns the configured instruments in lexical order, for
// deterministic processing.
func (c Config) tickers() []string {
	list := make([]string, 0, len(c.Targets))
	for t := range c.Targets {
		list = append(list, t)
	}
	slices.Sort(list)
	return list
}

// Range returns the simulated date range.
func (c Config) Range() date.Range { return date.Range{From: c.Start, To: c.End} }

// Validate rejects invalid configurations before the simulation starts.
// A valid configuration never fails mid-run for configuration reasons.
func (c Config) Validate(feed *Feed) error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidConfig, c.InitialCapital)
	}
	if !c.Range().Valid() {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidConfig, c.End, c.Start)
	}
	if _, err := c.cadence(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.WithdrawalRate < 0 {
		return fmt.Errorf("%w: withdrawal rate must not be negative, got %v", ErrInvalidConfig, c.WithdrawalRate)
	}
	for _, rate := range []struct {
		name  string
		value float64
	}{
		{"dividend tax", c.DividendTax},
		{"capital tax", c.CapitalTax},
		{"cost rate", c.CostRate},
	} {
		if rate.value < 0 || rate.value >= 1 {
			return fmt.Errorf("%w: %s must be in [0,1), got %v", ErrInvalidConfig, rate.name, rate.value)
		}
	}
	if c.Exemption < 0 {
		return fmt.Errorf("%w: exemption must not be negative, got %v", ErrInvalidConfig, c.Exemption)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no target allocation", ErrInvalidConfig)
	}
	var sum float64
	for ticker, weight := range c.Targets {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%w: weight of %q must be in [0,1], got %v", ErrInvalidConfig, ticker, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: target weights sum to %v, want 1", ErrInvalidConfig, sum)
	}
	if feed != nil {
		if feed.Currency() != c.currencyOrDefault() {
			return fmt.Errorf("%w: feed currency %q does not match run currency %q", ErrInvalidConfig, feed.Currency(), c.currencyOrDefault())
		}
		for _, ticker := range c.tickers() {
			if !feed.Has(ticker) {
				return fmt.Errorf("%w: instrument %q is unknown to the feed", ErrInvalidConfig, ticker)
			}
		}
	}
	return nil
}

func (c Config) currencyOrDefault() string {
	if c.Currency == "" {
		return "USD"
	}
	return c.Currency
}
