package backtest

import (
	"encoding/json"
	"io"

	"github.com/etnz/backtest/date"
)

// Snapshot is a point-in-time record of the portfolio, taken on the last
// trading day of each month. Snapshots are append-only; nothing mutates an
// existing one.
type Snapshot struct {
	On           date.Date
	Value        Money // cash + sum of shares*price, the accounting identity
	Cash         Money
	Weights      map[string]Percent
	CumTaxPaid   Money // withholding plus capital-gains payments so far
	CumWithdrawn Money
	CumDividends Money // net of withholding
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", s.On)
	w.Append("value", s.Value)
	w.Append("cash", s.Cash)
	w.Append("weights", s.Weights)
	w.Append("cum_tax_paid", s.CumTaxPaid)
	w.Append("cum_withdrawn", s.CumWithdrawn)
	w.Append("cum_dividends", s.CumDividends)
	return w.MarshalJSON()
}

// Metrics summarizes the performance of a run.
type Metrics struct {
	InitialValue Money
	FinalValue   Money
	TotalReturn  Percent
	CAGR         Percent
	Volatility   Percent // annualized stddev of monthly snapshot returns
	Sharpe       float64
	MaxDrawdown  Percent

	TotalWithdrawn     Money
	TotalDividendGross Money
	TotalDividendNet   Money
	TotalTaxPaid       Money
	TotalCost          Money
}

// YearSummary is one row of the per-year report.
type YearSummary struct {
	Year int
	// StartValue is the portfolio value entering the year (the prior year's
	// last snapshot, or the initial capital for the first year).
	StartValue Money
	// StartValueAfterCapitalTax deducts the capital-gains payment made that
	// January; the year's return is measured against it.
	StartValueAfterCapitalTax Money
	EndValue                  Money
	Return                    Percent

	Withdrawn      Money
	DividendGross  Money
	DividendNet    Money
	DividendTax    Money
	CapitalTaxPaid Money
	Cost           Money
}

// Result is the finalized outcome of one run: snapshots, the full event log
// and derived metrics. It is produced once at the end of a run and never
// mutated afterwards.
type Result struct {
	Name      string
	Config    Config
	Snapshots []Snapshot
	Events    *EventLog
	Metrics   Metrics
	Years     []YearSummary
}

// Shortfalls returns the liquidity shortfalls of the run, a queryable
// condition rather than a log line.
func (r *Result) Shortfalls() []Shortfall { return r.Events.Shortfalls() }

func (m Metrics) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("initial_value", m.InitialValue)
	w.Append("final_value", m.FinalValue)
	w.Append("total_return", float64(m.TotalReturn))
	w.Append("cagr", float64(m.CAGR))
	w.Append("volatility", float64(m.Volatility))
	w.Append("sharpe", m.Sharpe)
	w.Append("max_drawdown", float64(m.MaxDrawdown))
	w.Append("total_withdrawn", m.TotalWithdrawn)
	w.Append("total_dividend_gross", m.TotalDividendGross)
	w.Append("total_dividend_net", m.TotalDividendNet)
	w.Append("total_tax_paid", m.TotalTaxPaid)
	w.Append("total_cost", m.TotalCost)
	return w.MarshalJSON()
}

func (y YearSummary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("year", y.Year)
	w.Append("start_value", y.StartValue)
	w.Append("start_value_after_capital_tax", y.StartValueAfterCapitalTax)
	w.Append("end_value", y.EndValue)
	w.Append("return", float64(y.Return))
	w.Append("withdrawn", y.Withdrawn)
	w.Append("dividend_gross", y.DividendGross)
	w.Append("dividend_net", y.DividendNet)
	w.Append("dividend_tax", y.DividendTax)
	w.Append("capital_tax_paid", y.CapitalTaxPaid)
	w.Append("cost", y.Cost)
	return w.MarshalJSON()
}

// Encode writes the full result as a single JSON document.
func (r *Result) Encode(w io.Writer) error {
	var o jsonObjectWriter
	o.Optional("name", r.Name)
	o.Append("config", r.Config)
	o.Append("metrics", r.Metrics)
	o.Append("years", r.Years)
	o.Append("snapshots", r.Snapshots)

	events := make([]json.RawMessage, 0, r.Events.Len())
	for e := range r.Events.All() {
		b, err := marshalEvent(e)
		if err != nil {
			return err
		}
		events = append(events, b)
	}
	o.Append("events", events)

	b, err := o.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
