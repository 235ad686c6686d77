package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a
// specific date. Dates are unique and the series is always sorted, so it can
// serve as a read-only, date-indexed market data lookup.
type History[T any] struct {
	days   []Date
	values []T
}

// Len returns the number of items in the history.
func (h *History[T]) Len() int { return len(h.days) }

// First returns the earliest date and value in the history.
// If the history is empty, it returns zero values.
func (h *History[T]) First() (day Date, value T) {
	if len(h.days) == 0 {
		return Date{}, *new(T)
	}
	return h.days[0], h.values[0]
}

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero values.
func (h *History[T]) Latest() (day Date, value T) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, *new(T)
	}
	return h.days[last], h.values[last]
}

// compare orders two dates for binary search.
func compare(d, t Date) int {
	if d.After(t) {
		return 1
	}
	if d.Before(t) {
		return -1
	}
	return 0
}

// Append adds a point to the history, keeping it sorted.
//
// An existing value at that date is overwritten, giving priority to the
// last data.
func (h *History[T]) Append(on Date, q T) *History[T] {
	i, found := slices.BinarySearchFunc(h.days, on, compare)
	if found {
		h.values[i] = q
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, q)
	return h
}

// Values returns an iterator over all date/value pairs in the history, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Get returns the value at 'day' and true, or zero value and false.
func (h *History[T]) Get(day Date) (T, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, compare)
	if found {
		return h.values[i], true
	}
	return *new(T), false
}

// ValueAsOf returns the value on a given day, or the most recent value before it.
// It returns the value and true if found, otherwise it returns the zero value and false.
func (h *History[T]) ValueAsOf(day Date) (T, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, compare)
	if found {
		return h.values[i], true
	}
	// Not found. `i` is the index where `day` would be inserted.
	// The value we want is at `i-1`, the last entry before the target date.
	if i == 0 {
		return *new(T), false // No date on or before the given day.
	}
	return h.values[i-1], true
}

// Iterate returns an iterator over all unique, sorted dates from multiple History objects.
func Iterate[T any](histories ...*History[T]) iter.Seq[Date] {
	series := make([][]Date, 0, len(histories))
	for _, h := range histories {
		series = append(series, h.days)
	}
	return func(yield func(Date) bool) {
		indexes := make([]int, len(series))
		for {
			// find the minimum date not yet consumed across all series.
			var m Date
			found := false
			for i, index := range indexes {
				if index < len(series[i]) {
					on := series[i][index]
					if !found || on.Before(m) {
						m, found = on, true
					}
				}
			}
			if !found {
				// All series have been consumed, exit.
				return
			}
			// consume the min from every series that carries it.
			for i, index := range indexes {
				if index < len(series[i]) && series[i][index] == m {
					indexes[i]++
				}
			}
			if !yield(m) {
				return
			}
		}
	}
}
