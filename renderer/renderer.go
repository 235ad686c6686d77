// Package renderer turns backtest results into markdown reports.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/backtest"
)

// SummaryMarkdown renders the headline report of a run: configuration,
// performance metrics, total flows, and shortfalls if any occurred.
func SummaryMarkdown(r *backtest.Result) string {
	var b strings.Builder

	title := r.Name
	if title == "" {
		title = "Backtest"
	}
	fmt.Fprintf(&b, "# %s from %s to %s\n\n", title, r.Config.Start, r.Config.End)

	m := r.Metrics
	fmt.Fprint(&b, "## Performance\n\n")
	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Initial Value | %s |\n", m.InitialValue)
	fmt.Fprintf(&b, "| Final Value | %s |\n", m.FinalValue)
	fmt.Fprintf(&b, "| Total Return | %s |\n", m.TotalReturn.SignedString())
	fmt.Fprintf(&b, "| CAGR | %s |\n", m.CAGR.SignedString())
	fmt.Fprintf(&b, "| Volatility | %s |\n", m.Volatility)
	fmt.Fprintf(&b, "| Sharpe | %.2f |\n", m.Sharpe)
	fmt.Fprintf(&b, "| Max Drawdown | %s |\n", m.MaxDrawdown)
	fmt.Fprintln(&b)

	fmt.Fprint(&b, "## Flows\n\n")
	fmt.Fprintln(&b, "| Flow | Total |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Withdrawn | %s |\n", m.TotalWithdrawn)
	fmt.Fprintf(&b, "| Dividends (gross) | %s |\n", m.TotalDividendGross)
	fmt.Fprintf(&b, "| Dividends (net) | %s |\n", m.TotalDividendNet)
	fmt.Fprintf(&b, "| Taxes Paid | %s |\n", m.TotalTaxPaid)
	fmt.Fprintf(&b, "| Transaction Costs | %s |\n", m.TotalCost)
	fmt.Fprintln(&b)

	ConditionalBlock(&b, func(w io.Writer) bool {
		shortfalls := r.Shortfalls()
		if len(shortfalls) == 0 {
			return false
		}
		fmt.Fprint(w, "## Shortfalls\n\n")
		fmt.Fprintln(w, "| Date | Reason | Requested | Funded | Missing |")
		fmt.Fprintln(w, "|:---|:---|---:|---:|---:|")
		for _, s := range shortfalls {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
				s.On, s.Reason, s.Requested, s.Funded, s.Missing())
		}
		fmt.Fprintln(w)
		return true
	})

	return b.String()
}

// AnnualMarkdown renders the per-year report.
func AnnualMarkdown(r *backtest.Result) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Annual Summary\n\n")
	fmt.Fprintln(&b, "| Year | Start | After Tax | End | Return | Withdrawn | Dividends (net) | Capital Tax | Costs |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|---:|---:|")
	for _, y := range r.Years {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			y.Year,
			y.StartValue,
			y.StartValueAfterCapitalTax,
			y.EndValue,
			y.Return.SignedString(),
			y.Withdrawn,
			y.DividendNet,
			y.CapitalTaxPaid,
			y.Cost,
		)
	}
	return b.String()
}

// CompareMarkdown renders several runs side by side, one column per run.
func CompareMarkdown(results []*backtest.Result) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Comparison\n\n")
	fmt.Fprint(&b, "| Metric |")
	for i, r := range results {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Run %d", i+1)
		}
		fmt.Fprintf(&b, " %s |", name)
	}
	fmt.Fprintln(&b)
	fmt.Fprint(&b, "|:---|")
	for range results {
		fmt.Fprint(&b, "---:|")
	}
	fmt.Fprintln(&b)

	row := func(label string, cell func(r *backtest.Result) string) {
		fmt.Fprintf(&b, "| %s |", label)
		for _, r := range results {
			fmt.Fprintf(&b, " %s |", cell(r))
		}
		fmt.Fprintln(&b)
	}
	row("Final Value", func(r *backtest.Result) string { return r.Metrics.FinalValue.String() })
	row("Total Return", func(r *backtest.Result) string { return r.Metrics.TotalReturn.SignedString() })
	row("CAGR", func(r *backtest.Result) string { return r.Metrics.CAGR.SignedString() })
	row("Volatility", func(r *backtest.Result) string { return r.Metrics.Volatility.String() })
	row("Sharpe", func(r *backtest.Result) string { return fmt.Sprintf("%.2f", r.Metrics.Sharpe) })
	row("Max Drawdown", func(r *backtest.Result) string { return r.Metrics.MaxDrawdown.String() })
	row("Withdrawn", func(r *backtest.Result) string { return r.Metrics.TotalWithdrawn.String() })
	row("Taxes Paid", func(r *backtest.Result) string { return r.Metrics.TotalTaxPaid.String() })
	row("Shortfalls", func(r *backtest.Result) string { return fmt.Sprintf("%d", len(r.Shortfalls())) })

	return b.String()
}
