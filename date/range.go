package date

import "fmt"

// Range represents an inclusive range of dates.
type Range struct{ From, To Date }

// NewRange returns the range covering the period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Contains return true if date is included in the range (boundaries included).
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Valid reports whether the range is well formed (From not after To).
func (r Range) Valid() bool { return !r.From.After(r.To) }

// Years returns the duration of the range in fractional years.
func (r Range) Years() float64 {
	days := r.To.time().Sub(r.From.time()).Hours() / 24
	return days / 365.25
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
