package backtest

import (
	"testing"
)

func newTestState(cash float64) *State {
	return NewState(usd(cash), []string{"A", "B"})
}

func TestState_ApplyDividend(t *testing.T) {
	s := newTestState(100_000)
	s.Buy("A", usd(60_000), usd(200), 0) // 300 shares at 200

	gross, withheld, net := s.ApplyDividend("A", usd(2), 0.15)
	if !gross.Equal(usd(600)) {
		t.Errorf("gross = %s, want 600", gross)
	}
	if !withheld.Equal(usd(90)) {
		t.Errorf("withheld = %s, want 90", withheld)
	}
	if !net.Equal(usd(510)) {
		t.Errorf("net = %s, want 510", net)
	}
	// net credited the same day: 40,000 left after the buy, plus 510.
	if !s.Cash().Equal(usd(40_510)) {
		t.Errorf("cash = %s, want 40510", s.Cash())
	}
}

func TestState_BuyUpdatesAverageCost(t *testing.T) {
	s := newTestState(100_000)
	s.Buy("A", usd(10_000), usd(100), 0) // 100 shares at 100
	s.Buy("A", usd(20_000), usd(200), 0) // 100 shares at 200

	if !s.Shares("A").Equal(Q(200)) {
		t.Errorf("shares = %s, want 200", s.Shares("A"))
	}
	// average cost aggregate is 30,000 for 200 shares (150/share).
	if !s.CostBasis("A").Equal(usd(30_000)) {
		t.Errorf("cost basis = %s, want 30000", s.CostBasis("A"))
	}
}

func TestState_SellForCash(t *testing.T) {
	s := newTestState(100_000)
	s.Buy("A", usd(50_000), usd(100), 0) // 500 shares, basis 100/share

	shares, proceeds, cost, gain := s.SellForCash("A", usd(30_000), usd(150), 0.002)
	if !shares.Equal(Q(200)) {
		t.Errorf("shares sold = %s, want 200", shares)
	}
	if !proceeds.Equal(usd(30_000)) {
		t.Errorf("proceeds = %s, want 30000", proceeds)
	}
	if !cost.Equal(usd(60)) {
		t.Errorf("cost = %s, want 60", cost)
	}
	// gain = 30,000 proceeds - 20,000 average cost of the 200 shares.
	if !gain.Equal(usd(10_000)) {
		t.Errorf("gain = %s, want 10000", gain)
	}
	// basis aggregate shrank by the cost of sale.
	if !s.CostBasis("A").Equal(usd(30_000)) {
		t.Errorf("remaining basis = %s, want 30000", s.CostBasis("A"))
	}
	// cash = 50,000 left + 30,000 proceeds - 60 cost.
	if !s.Cash().Equal(usd(79_940)) {
		t.Errorf("cash = %s, want 79940", s.Cash())
	}
}

func TestState_SellCapsAtHeldShares(t *testing.T) {
	s := newTestState(10_000)
	s.Buy("A", usd(5_000), usd(100), 0) // 50 shares

	shares, proceeds, _, _ := s.SellForCash("A", usd(100_000), usd(100), 0)
	if !shares.Equal(Q(50)) {
		t.Errorf("shares sold = %s, want all 50", shares)
	}
	if !proceeds.Equal(usd(5_000)) {
		t.Errorf("proceeds = %s, want 5000", proceeds)
	}
	if !s.Shares("A").IsZero() {
		t.Errorf("shares left = %s, want 0", s.Shares("A"))
	}
}

func TestState_SellWithZeroSharesIsNoop(t *testing.T) {
	s := newTestState(10_000)
	shares, proceeds, cost, gain := s.SellForCash("A", usd(1_000), usd(100), 0.002)
	if !shares.IsZero() || !proceeds.IsZero() || !cost.IsZero() || !gain.IsZero() {
		t.Errorf("selling with zero shares = (%s, %s, %s, %s), want all zero", shares, proceeds, cost, gain)
	}
	if !s.Cash().Equal(usd(10_000)) {
		t.Errorf("cash = %s, want untouched 10000", s.Cash())
	}
}

func TestState_MarketValueIdentity(t *testing.T) {
	s := newTestState(100_000)
	s.Buy("A", usd(60_000), usd(100), 0)
	s.Buy("B", usd(30_000), usd(50), 0)

	prices := map[string]Money{"A": usd(110), "B": usd(40)}
	// cash 10,000 + A 600*110 + B 600*40 = 100,000.
	want := s.Cash().Add(prices["A"].Mul(s.Shares("A"))).Add(prices["B"].Mul(s.Shares("B")))
	if got := s.MarketValue(prices); !got.Equal(want) {
		t.Errorf("MarketValue = %s, want %s", got, want)
	}
}
