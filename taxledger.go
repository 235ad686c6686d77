package backtest

import (
	"fmt"
	"slices"

	"github.com/etnz/backtest/date"
)

// TaxLedger accumulates realized capital gains per calendar year and runs
// the deferred settlement cycle.
//
// Recognition (at sale time), settlement (at the year boundary) and payment
// (the following period) are deliberately decoupled: a year's liability is
// computed exactly once from the records of that year, with the exemption
// netted once per year, and is paid exactly once later.
type TaxLedger struct {
	rate      float64
	exemption Money
	years     map[int]*taxYear
}

// yearStatus is the lifecycle of one calendar year in the ledger.
type yearStatus int

const (
	yearOpen yearStatus = iota
	yearSettled
	yearPaid
)

func (s yearStatus) String() string {
	switch s {
	case yearOpen:
		return "open"
	case yearSettled:
		return "settled"
	case yearPaid:
		return "paid"
	default:
		return "unknown"
	}
}

type taxYear struct {
	status     yearStatus
	net        Money // running sum of signed gain records
	residual   Money // gains recognized after the year was settled
	settlement Settlement
}

// Settlement is the outcome of a year-end capital-gains settlement.
// TaxDue is never negative; losses and the exemption only shrink it to zero.
type Settlement struct {
	Year    int
	Net     Money // signed sum of the year's realized gains and losses
	Taxable Money // max(0, Net - exemption)
	TaxDue  Money
}

// NewTaxLedger returns a ledger applying the given capital-gains rate and
// yearly exemption, both fixed for the run.
func NewTaxLedger(rate float64, exemption Money) *TaxLedger {
	return &TaxLedger{
		rate:      rate,
		exemption: exemption,
		years:     make(map[int]*taxYear),
	}
}

func (l *TaxLedger) year(y int) *taxYear {
	t, ok := l.years[y]
	if !ok {
		t = &taxYear{net: M(0, l.exemption.Currency())}
		l.years[y] = t
	}
	return t
}

// RecordGain appends a signed realized gain (negative for a loss) to the
// bucket of the calendar year of on. It has no effect on cash and never fails.
//
// A gain recognized after its year was settled (the forced sale paying the
// final liability at the very end of a run) accumulates as a residual: it is
// reported but never settled again, settlements do not chain.
func (l *TaxLedger) RecordGain(amount Money, on date.Date) {
	t := l.year(on.Year())
	if t.status != yearOpen {
		t.residual = t.residual.Add(amount)
		return
	}
	t.net = t.net.Add(amount)
}

// Residual returns the gains recognized after the year's settlement.
func (l *TaxLedger) Residual(year int) Money { return l.year(year).residual }

// Net returns the running net gain of a year.
func (l *TaxLedger) Net(year int) Money { return l.year(year).net }

// SettleYear closes a year and computes its liability:
// taxable = max(0, net - exemption); tax = taxable * rate.
// A year with no gains, a net loss, or a net gain within the exemption
// settles to a zero liability: it still transitions to settled, it is not
// skipped. Settling a year twice is an error.
func (l *TaxLedger) SettleYear(year int) (Settlement, error) {
	t := l.year(year)
	if t.status != yearOpen {
		return Settlement{}, fmt.Errorf("year %d is already %s", year, t.status)
	}
	taxable := t.net.Sub(l.exemption)
	if taxable.IsNegative() {
		taxable = M(0, l.exemption.Currency())
	}
	t.settlement = Settlement{
		Year:    year,
		Net:     t.net,
		Taxable: taxable,
		TaxDue:  taxable.Scale(l.rate),
	}
	t.status = yearSettled
	return t.settlement, nil
}

// PaymentDue returns the settled, still unpaid liability for a year.
// It returns false for an open or already paid year.
func (l *TaxLedger) PaymentDue(year int) (Money, bool) {
	t, ok := l.years[year]
	if !ok || t.status != yearSettled {
		return Money{}, false
	}
	return t.settlement.TaxDue, true
}

// MarkPaid transitions a settled year to paid. A liability is paid exactly
// once; paying an open or already paid year is an error.
func (l *TaxLedger) MarkPaid(year int) error {
	t, ok := l.years[year]
	if !ok || t.status != yearSettled {
		status := "unknown"
		if ok {
			status = t.status.String()
		}
		return fmt.Errorf("cannot pay year %d: it is %s, not settled", year, status)
	}
	t.status = yearPaid
	return nil
}

// Unpaid returns the settled years whose liability has not been paid yet,
// in ascending order.
func (l *TaxLedger) Unpaid() []int {
	var years []int
	for y, t := range l.years {
		if t.status == yearSettled {
			years = append(years, y)
		}
	}
	// map iteration order is random; keep the output deterministic.
	slices.Sort(years)
	return years
}
