package date

import (
	"slices"
	"testing"
	"time"
)

func TestHistory_AppendKeepsSorted(t *testing.T) {
	h := &History[float64]{}
	h.Append(New(2025, time.March, 1), 3)
	h.Append(New(2025, time.January, 1), 1)
	h.Append(New(2025, time.February, 1), 2)

	var got []float64
	for _, v := range h.Values() {
		got = append(got, v)
	}
	if !slices.Equal(got, []float64{1, 2, 3}) {
		t.Errorf("Values() = %v, want [1 2 3]", got)
	}
}

func TestHistory_AppendOverwrites(t *testing.T) {
	h := &History[float64]{}
	on := New(2025, time.January, 1)
	h.Append(on, 1).Append(on, 2)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if v, _ := h.Get(on); v != 2 {
		t.Errorf("Get() = %v, want 2 (last write wins)", v)
	}
}

func TestHistory_ValueAsOf(t *testing.T) {
	h := &History[float64]{}
	h.Append(New(2025, time.January, 2), 10)
	h.Append(New(2025, time.January, 6), 20)

	if v, ok := h.ValueAsOf(New(2025, time.January, 4)); !ok || v != 10 {
		t.Errorf("ValueAsOf(Jan 4) = %v, %v; want 10, true", v, ok)
	}
	if v, ok := h.ValueAsOf(New(2025, time.January, 6)); !ok || v != 20 {
		t.Errorf("ValueAsOf(Jan 6) = %v, %v; want 20, true", v, ok)
	}
	if _, ok := h.ValueAsOf(New(2025, time.January, 1)); ok {
		t.Error("ValueAsOf before first point should not be found")
	}
}

func TestIterate_MergesAndDeduplicates(t *testing.T) {
	a := &History[float64]{}
	a.Append(New(2025, time.January, 1), 1)
	a.Append(New(2025, time.January, 3), 1)
	b := &History[float64]{}
	b.Append(New(2025, time.January, 2), 1)
	b.Append(New(2025, time.January, 3), 1)

	var got []Date
	for on := range Iterate(a, b) {
		got = append(got, on)
	}
	want := []Date{
		New(2025, time.January, 1),
		New(2025, time.January, 2),
		New(2025, time.January, 3),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Iterate() = %v, want %v", got, want)
	}
}
