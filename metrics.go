package backtest

import (
	"math"

	"github.com/etnz/backtest/date"
)

// This file derives the performance figures of a finished run. All
// derivations are read-only: they never mutate state, events or snapshots.

type metricTotals struct {
	withdrawn     Money
	dividendGross Money
	dividendNet   Money
	taxPaid       Money
	cost          Money
}

func newMetrics(cfg Config, rng date.Range, snapshots []Snapshot, finalValue Money, totals metricTotals) Metrics {
	initial := M(cfg.InitialCapital, cfg.currencyOrDefault())
	m := Metrics{
		InitialValue:       initial,
		FinalValue:         finalValue,
		TotalWithdrawn:     totals.withdrawn,
		TotalDividendGross: totals.dividendGross,
		TotalDividendNet:   totals.dividendNet,
		TotalTaxPaid:       totals.taxPaid,
		TotalCost:          totals.cost,
	}

	initialF := initial.AsFloat()
	finalF := finalValue.AsFloat()
	if initialF > 0 {
		m.TotalReturn = Percent(100 * (finalF/initialF - 1))
	}

	years := rng.Years()
	if years > 0 && initialF > 0 && finalF > 0 {
		m.CAGR = Percent(100 * (math.Pow(finalF/initialF, 1/years) - 1))
	}

	values := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		values = append(values, s.Value.AsFloat())
	}
	vol := stddev(periodReturns(values))
	m.Volatility = Percent(100 * vol * math.Sqrt(12)) // monthly snapshots, annualized

	if m.Volatility > 0 {
		excess := float64(m.CAGR)/100 - cfg.RiskFree
		m.Sharpe = excess / (float64(m.Volatility) / 100)
	}

	m.MaxDrawdown = Percent(100 * maxDrawdown(values))
	return m
}

// periodReturns returns the simple return between consecutive values.
func periodReturns(values []float64) []float64 {
	var returns []float64
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns = append(returns, values[i]/values[i-1]-1)
		}
	}
	return returns
}

// stddev is the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// maxDrawdown is the largest peak-to-date loss fraction over the series.
func maxDrawdown(values []float64) float64 {
	var peak, worst float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// annualSummary derives one row per calendar year from the snapshots and the
// event log. The start value of a year is the prior year's closing value
// (the initial capital for the first year); the return is measured against
// the start value net of that January's capital-gains payment.
func annualSummary(cfg Config, snapshots []Snapshot, log *EventLog) []YearSummary {
	if len(snapshots) == 0 {
		return nil
	}
	cur := cfg.currencyOrDefault()
	zero := M(0, cur)

	type yearAgg struct {
		withdrawn, dividendGross, dividendNet, dividendTax, capitalTax, cost Money
	}
	aggs := make(map[int]*yearAgg)
	agg := func(year int) *yearAgg {
		a, ok := aggs[year]
		if !ok {
			a = &yearAgg{zero, zero, zero, zero, zero, zero}
			aggs[year] = a
		}
		return a
	}
	for e := range log.All() {
		year := e.When().Year()
		switch v := e.(type) {
		case WithdrawalExecuted:
			a := agg(year)
			a.withdrawn = a.withdrawn.Add(v.Funded())
		case DividendReceived:
			a := agg(year)
			a.dividendGross = a.dividendGross.Add(v.Gross)
			a.dividendNet = a.dividendNet.Add(v.Gross)
		case DividendTaxWithheld:
			a := agg(year)
			a.dividendNet = a.dividendNet.Sub(v.Tax)
			a.dividendTax = a.dividendTax.Add(v.Tax)
		case TaxPaid:
			a := agg(year)
			a.capitalTax = a.capitalTax.Add(v.Amount)
		case RebalanceTrade:
			a := agg(year)
			a.cost = a.cost.Add(v.Cost)
		}
	}

	var rows []YearSummary
	start := M(cfg.InitialCapital, cur)
	firstYear := snapshots[0].On.Year()
	lastYear := snapshots[len(snapshots)-1].On.Year()
	i := 0
	for year := firstYear; year <= lastYear; year++ {
		var end Money
		seen := false
		for ; i < len(snapshots) && snapshots[i].On.Year() == year; i++ {
			end = snapshots[i].Value
			seen = true
		}
		if !seen {
			continue
		}
		a := agg(year)
		afterTax := start.Sub(a.capitalTax)
		row := YearSummary{
			Year:                      year,
			StartValue:                start,
			StartValueAfterCapitalTax: afterTax,
			EndValue:                  end,

			Withdrawn:      a.withdrawn,
			DividendGross:  a.dividendGross,
			DividendNet:    a.dividendNet,
			DividendTax:    a.dividendTax,
			CapitalTaxPaid: a.capitalTax,
			Cost:           a.cost,
		}
		if !afterTax.IsZero() {
			row.Return = Percent(100 * (end.AsFloat()/afterTax.AsFloat() - 1))
		}
		rows = append(rows, row)
		start = end
	}
	return rows
}
