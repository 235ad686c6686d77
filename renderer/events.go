package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/backtest"
)

// EventsMarkdown renders the full event log of a run, one row per event in
// chronological order.
func EventsMarkdown(r *backtest.Result) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Events\n\n")
	fmt.Fprintln(&b, "| Date | Kind | Details |")
	fmt.Fprintln(&b, "|:---|:---|:---|")
	for e := range r.Events.All() {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.When(), e.Kind(), describe(e))
	}
	return b.String()
}

// describe renders the payload of an event as a one-line summary.
func describe(e backtest.Event) string {
	switch v := e.(type) {
	case backtest.DividendReceived:
		return fmt.Sprintf("%s paid %s per share on %s shares: %s gross", v.Ticker, v.PerShare, v.Shares, v.Gross)
	case backtest.DividendTaxWithheld:
		return fmt.Sprintf("%s withheld at source on %s", v.Tax, v.Ticker)
	case backtest.RebalanceTrade:
		verb := "bought"
		shares := v.Shares
		if shares.IsNegative() {
			verb = "sold"
			shares = shares.Neg()
		}
		if v.Initial {
			verb = "initial buy of"
		}
		return fmt.Sprintf("%s %s %s at %s for %s (cost %s)", verb, shares, v.Ticker, v.Price, v.Notional, v.Cost)
	case backtest.GainRealized:
		return fmt.Sprintf("realized %s on %s", v.Amount.SignedString(), v.Ticker)
	case backtest.WithdrawalExecuted:
		return fmt.Sprintf("withdrew %s of %s (%s from cash, %s from sales)", v.Funded(), v.Target, v.FromCash, v.FromSales)
	case backtest.Shortfall:
		return fmt.Sprintf("%s underfunded: %s missing of %s", v.Reason, v.Missing(), v.Requested)
	case backtest.TaxSettled:
		s := v.Settlement
		return fmt.Sprintf("year %d settled: net gains %s, taxable %s, due %s", s.Year, s.Net.SignedString(), s.Taxable, s.TaxDue)
	case backtest.TaxPaid:
		return fmt.Sprintf("paid %s for year %d (%s from cash, %s from sales)", v.Amount, v.Year, v.FromCash, v.FromSales)
	default:
		return fmt.Sprintf("%+v", e)
	}
}
