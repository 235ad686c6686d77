package date

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar period used for scheduling (rebalancing cadence,
// snapshot frequency).
type Period int

const (
	Monthly Period = iota
	Quarterly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// ParsePeriod parses a period name, leniently.
func ParsePeriod(p string) (Period, error) {
	switch strings.ToLower(p) {
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year", "annual":
		return Yearly, nil
	default:
		return Monthly, fmt.Errorf("unknown period %q", p)
	}
}

// StartOf returns the first calendar day of the period containing d.
func (d Date) StartOf(p Period) Date {
	switch p {
	case Monthly:
		return New(d.y, d.m, 1)
	case Quarterly:
		month := time.Month((d.Quarter()-1)*3 + 1)
		return New(d.y, month, 1)
	case Yearly:
		return New(d.y, time.January, 1)
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// EndOf returns the last calendar day of the period containing d.
func (d Date) EndOf(p Period) Date {
	switch p {
	case Monthly:
		return New(d.y, d.m+1, 1).Add(-1)
	case Quarterly:
		month := time.Month(d.Quarter() * 3)
		return New(d.y, month+1, 1).Add(-1)
	case Yearly:
		return New(d.y, time.December, 31)
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}
