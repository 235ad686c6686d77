package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/etnz/backtest/date"
)

// Event is a single, immutable fact appended to the run's log. Events are
// totally ordered by date, then by the fixed intra-day processing order of
// the engine (dividends, withdrawal, rebalancing, settlement, payment).
type Event interface {
	When() date.Date
	Kind() string
}

// --- Dividend events ---

// DividendReceived records a gross dividend going ex while shares are held.
type DividendReceived struct {
	On       date.Date
	Ticker   string
	PerShare Money
	Shares   Quantity
	Gross    Money
}

func (e DividendReceived) When() date.Date { return e.On }
func (e DividendReceived) Kind() string    { return "dividend" }

// DividendTaxWithheld records the withholding applied at source, the same
// trading day the dividend is received.
type DividendTaxWithheld struct {
	On     date.Date
	Ticker string
	Tax    Money
}

func (e DividendTaxWithheld) When() date.Date { return e.On }
func (e DividendTaxWithheld) Kind() string    { return "dividend-tax" }

// --- Trading events ---

// RebalanceTrade records one leg of a rebalancing: a buy or a sell of a
// single instrument, with its transaction cost.
type RebalanceTrade struct {
	On       date.Date
	Ticker   string
	Shares   Quantity // positive for a buy, negative for a sell
	Price    Money
	Notional Money
	Cost     Money
	Initial  bool // true for the initial investment of the starting capital
}

func (e RebalanceTrade) When() date.Date { return e.On }
func (e RebalanceTrade) Kind() string    { return "rebalance" }

// GainRealized records the signed capital gain recognized by one sale. The
// amount feeds the tax ledger's bucket for the year of On.
type GainRealized struct {
	On     date.Date
	Ticker string
	Amount Money
}

func (e GainRealized) When() date.Date { return e.On }
func (e GainRealized) Kind() string    { return "gain" }

// --- Withdrawal events ---

// WithdrawalExecuted records one scheduled withdrawal: cash-first funding,
// then pro-rata sales by target weight.
type WithdrawalExecuted struct {
	On        date.Date
	Target    Money
	FromCash  Money
	FromSales Money
}

func (e WithdrawalExecuted) When() date.Date { return e.On }
func (e WithdrawalExecuted) Kind() string    { return "withdrawal" }

// Funded returns the amount actually withdrawn.
func (e WithdrawalExecuted) Funded() Money { return e.FromCash.Add(e.FromSales) }

// Shortfall records that a withdrawal or a tax payment could not be funded in
// full. The engine funds the maximum available and continues; the shortfall
// remains queryable in the result.
type Shortfall struct {
	On        date.Date
	Reason    string // "withdrawal" or "tax"
	Requested Money
	Funded    Money
}

func (e Shortfall) When() date.Date { return e.On }
func (e Shortfall) Kind() string    { return "shortfall" }

// Missing returns the unfunded part.
func (e Shortfall) Missing() Money { return e.Requested.Sub(e.Funded) }

// --- Tax events ---

// TaxSettled records the year-end capital-gains settlement. The liability is
// recorded, not deducted: payment happens the following period.
type TaxSettled struct {
	On         date.Date
	Settlement Settlement
}

func (e TaxSettled) When() date.Date { return e.On }
func (e TaxSettled) Kind() string    { return "tax-settled" }

// TaxPaid records the deferred payment of a settled year's liability.
type TaxPaid struct {
	On        date.Date
	Year      int // the settlement year being paid
	Amount    Money
	FromCash  Money
	FromSales Money
}

func (e TaxPaid) When() date.Date { return e.On }
func (e TaxPaid) Kind() string    { return "tax-paid" }

// --- Log ---

// EventLog is the append-only log of a run.
type EventLog struct {
	events []Event
}

func (l *EventLog) append(e Event) { l.events = append(l.events, e) }

// Len returns the number of events.
func (l *EventLog) Len() int { return len(l.events) }

// All iterates over all events in order.
func (l *EventLog) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, e := range l.events {
			if !yield(e) {
				return
			}
		}
	}
}

// Shortfalls returns all shortfall events of the run.
func (l *EventLog) Shortfalls() []Shortfall {
	var out []Shortfall
	for _, e := range l.events {
		if s, ok := e.(Shortfall); ok {
			out = append(out, s)
		}
	}
	return out
}

// Encode writes the log as JSONL, one event per line, in log order.
func (l *EventLog) Encode(w io.Writer) error {
	for _, e := range l.events {
		b, err := marshalEvent(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

// marshalEvent encodes one event with its kind and date first.
func marshalEvent(e Event) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("kind", e.Kind())
	w.Append("on", e.When())
	switch v := e.(type) {
	case DividendReceived:
		w.Append("ticker", v.Ticker)
		w.Append("per_share", v.PerShare)
		w.Append("shares", v.Shares)
		w.Append("gross", v.Gross)
	case DividendTaxWithheld:
		w.Append("ticker", v.Ticker)
		w.Append("tax", v.Tax)
	case RebalanceTrade:
		w.Append("ticker", v.Ticker)
		w.Append("shares", v.Shares)
		w.Append("price", v.Price)
		w.Append("notional", v.Notional)
		w.Append("cost", v.Cost)
		w.Optional("initial", v.Initial)
	case GainRealized:
		w.Append("ticker", v.Ticker)
		w.Append("amount", v.Amount)
	case WithdrawalExecuted:
		w.Append("target", v.Target)
		w.Append("from_cash", v.FromCash)
		w.Append("from_sales", v.FromSales)
	case Shortfall:
		w.Append("reason", v.Reason)
		w.Append("requested", v.Requested)
		w.Append("funded", v.Funded)
	case TaxSettled:
		w.Append("year", v.Settlement.Year)
		w.Append("net", v.Settlement.Net)
		w.Append("taxable", v.Settlement.Taxable)
		w.Append("tax_due", v.Settlement.TaxDue)
	case TaxPaid:
		w.Append("year", v.Year)
		w.Append("amount", v.Amount)
		w.Append("from_cash", v.FromCash)
		w.Append("from_sales", v.FromSales)
	default:
		return nil, fmt.Errorf("unhandled event type: %T", e)
	}
	return json.Marshal(&w)
}
