package backtest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/etnz/backtest/date"
)

// testConfig returns a two-instrument configuration with no frictions, the
// base of most engine scenarios.
func testConfig(from, to date.Date) Config {
	return Config{
		InitialCapital: 1_000_000,
		Currency:       "USD",
		Start:          from,
		End:            to,
		Rebalancing:    "quarterly",
		Targets:        map[string]float64{"A": 0.6, "B": 0.4},
	}
}

func TestRun_DividendWithholding(t *testing.T) {
	// 1,000,000 split 60/40; A at 2000 gives exactly 300 shares. A pays
	// 2/share while those 300 shares are held, withholding 15%.
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.January, 31)}
	feed := NewFeed("USD")
	fillPrices(feed, "A", rng, 2000)
	fillPrices(feed, "B", rng, 1000)
	feed.AddDividend("A", day(2025, time.January, 15), 2)

	cfg := testConfig(rng.From, rng.To)
	cfg.DividendTax = 0.15

	r, err := Run(cfg, feed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var received *DividendReceived
	var withheld *DividendTaxWithheld
	for e := range r.Events.All() {
		switch v := e.(type) {
		case DividendReceived:
			received = &v
		case DividendTaxWithheld:
			withheld = &v
		}
	}
	if received == nil || withheld == nil {
		t.Fatal("expected one dividend and one withholding event")
	}
	if !received.Gross.Equal(usd(600)) {
		t.Errorf("gross dividend = %s, want 600", received.Gross)
	}
	if !withheld.Tax.Equal(usd(90)) {
		t.Errorf("withholding = %s, want 90", withheld.Tax)
	}
	if received.On != withheld.On {
		t.Error("withholding must happen the same trading day as the dividend")
	}
	// cash was fully invested on day one; only the net dividend remains.
	final := r.Snapshots[len(r.Snapshots)-1]
	if !final.Cash.Equal(usd(510)) {
		t.Errorf("final cash = %s, want net 510", final.Cash)
	}
}

func TestRun_DeferredCapitalGainsTax(t *testing.T) {
	// A doubles on April 1st. The April rebalance sells 240,000 of A held
	// at half that price, realizing a 120,000 gain. With exemption 2,000
	// and rate 22% the year settles at (120,000-2,000)*0.22 = 25,960,
	// paid the first trading day of the next January.
	rng := date.Range{From: day(2025, time.January, 1), To: day(2026, time.March, 31)}
	feed := NewFeed("USD")
	fillPricesFunc(feed, "A", rng, func(on date.Date) float64 {
		if on.Before(day(2025, time.April, 1)) {
			return 100
		}
		return 200
	})
	fillPrices(feed, "B", rng, 100)

	cfg := testConfig(rng.From, rng.To)
	cfg.CapitalTax = 0.22
	cfg.Exemption = 2_000

	r, err := Run(cfg, feed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var settled []TaxSettled
	var paid []TaxPaid
	for e := range r.Events.All() {
		switch v := e.(type) {
		case TaxSettled:
			settled = append(settled, v)
		case TaxPaid:
			paid = append(paid, v)
		}
	}

	if len(settled) != 2 {
		t.Fatalf("got %d settlements, want 2 (2025 and 2026)", len(settled))
	}
	s2025 := settled[0].Settlement
	if s2025.Year != 2025 {
		t.Fatalf("first settlement year = %d, want 2025", s2025.Year)
	}
	if !moneyEquals(s2025.Net, usd(120_000)) {
		t.Errorf("2025 net gains = %s, want 120000", s2025.Net)
	}
	if !moneyEquals(s2025.TaxDue, usd(25_960)) {
		t.Errorf("2025 tax due = %s, want 25960", s2025.TaxDue)
	}
	if settled[0].On != day(2025, time.December, 31) {
		t.Errorf("2025 settled on %s, want the last trading day of 2025", settled[0].On)
	}

	if len(paid) != 2 {
		t.Fatalf("got %d payments, want 2", len(paid))
	}
	p2025 := paid[0]
	if p2025.Year != 2025 {
		t.Fatalf("first payment is for %d, want 2025", p2025.Year)
	}
	if p2025.On != day(2026, time.January, 1) {
		t.Errorf("2025 liability paid on %s, want the first trading day of 2026", p2025.On)
	}
	if !moneyEquals(p2025.Amount, usd(25_960)) {
		t.Errorf("2025 payment = %s, want 25960", p2025.Amount)
	}

	// cash was zero in January 2026: the payment was funded by a forced
	// pro-rata sale, whose gain on A (bought at 100, sold at 200) belongs
	// to 2026, not to the already settled 2025.
	if !p2025.FromSales.Equal(p2025.Amount) {
		t.Errorf("payment from sales = %s, want all of %s", p2025.FromSales, p2025.Amount)
	}
	s2026 := settled[1].Settlement
	if s2026.Year != 2026 {
		t.Fatalf("second settlement year = %d, want 2026", s2026.Year)
	}
	// A leg of the forced sale: 60% of 25,960 sold at 200 against a 100
	// basis realizes 7,788; the B leg realizes nothing.
	if !moneyEquals(s2026.Net, usd(7_788)) {
		t.Errorf("2026 net gains = %s, want 7788", s2026.Net)
	}
	if paid[1].Year != 2026 || paid[1].On != rng.To {
		t.Errorf("final liability paid as %v, want year 2026 on %s", paid[1], rng.To)
	}
}

func TestRun_RebalanceRestoresTargetWeights(t *testing.T) {
	// A doubles on April 1st then stays flat: the April rebalance must
	// bring the weights back to 60/40 and they hold through month end.
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.April, 30)}
	feed := NewFeed("USD")
	fillPricesFunc(feed, "A", rng, func(on date.Date) float64 {
		if on.Before(day(2025, time.April, 1)) {
			return 100
		}
		return 200
	})
	fillPrices(feed, "B", rng, 100)

	cfg := testConfig(rng.From, rng.To)

	r, err := Run(cfg, feed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	final := r.Snapshots[len(r.Snapshots)-1]
	if final.On != day(2025, time.April, 30) {
		t.Fatalf("final snapshot on %s, want April 30", final.On)
	}
	if !final.Weights["A"].Equal(Percent(60)) {
		t.Errorf("weight of A = %s, want 60%%", final.Weights["A"])
	}
	if !final.Weights["B"].Equal(Percent(40)) {
		t.Errorf("weight of B = %s, want 40%%", final.Weights["B"])
	}
}

func TestRun_SnapshotsMonthlyAndConsistent(t *testing.T) {
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.June, 30)}
	feed := NewFeed("USD")
	fillPrices(feed, "A", rng, 120)
	fillPrices(feed, "B", rng, 80)

	cfg := testConfig(rng.From, rng.To)
	cfg.WithdrawalRate = 0.05

	r, err := Run(cfg, feed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(r.Snapshots) != 6 {
		t.Fatalf("got %d snapshots, want 6 (one per month)", len(r.Snapshots))
	}
	for i, s := range r.Snapshots {
		if s.On != s.On.EndOf(date.Monthly) {
			t.Errorf("snapshot %d on %s, want a last trading day of month", i, s.On)
		}
		// the weight fractions and the cash fraction must close the
		// accounting identity.
		total := Percent(100 * s.Cash.AsFloat() / s.Value.AsFloat())
		for _, w := range s.Weights {
			total += w
		}
		if !total.Equal(Percent(100)) {
			t.Errorf("snapshot %d fractions sum to %s, want 100%%", i, total)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.December, 31)}
	feed := NewFeed("USD")
	fillPricesFunc(feed, "A", rng, func(on date.Date) float64 { return 100 + float64(on.Day()) })
	fillPrices(feed, "B", rng, 50)
	feed.AddDividend("A", day(2025, time.March, 10), 1.5)

	cfg := testConfig(rng.From, rng.To)
	cfg.WithdrawalRate = 0.05
	cfg.DividendTax = 0.15
	cfg.CapitalTax = 0.22
	cfg.Exemption = 2_000
	cfg.CostRate = 0.002

	var a, b bytes.Buffer
	for i, buf := range []*bytes.Buffer{&a, &b} {
		r, err := Run(cfg, feed)
		if err != nil {
			t.Fatalf("Run() %d error = %v", i, err)
		}
		if err := r.Encode(buf); err != nil {
			t.Fatalf("Encode() %d error = %v", i, err)
		}
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two identical runs produced different results")
	}
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	rng := date.Range{From: day(2025, time.January, 1), To: day(2025, time.March, 31)}
	feed := NewFeed("USD")
	fillPrices(feed, "A", rng, 100)
	fillPrices(feed, "B", rng, 100)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights not summing to one", func(c *Config) { c.Targets = map[string]float64{"A": 0.6, "B": 0.3} }},
		{"non-positive capital", func(c *Config) { c.InitialCapital = 0 }},
		{"end before start", func(c *Config) { c.Start, c.End = c.End, c.Start }},
		{"unknown instrument", func(c *Config) { c.Targets = map[string]float64{"A": 0.5, "Z": 0.5} }},
		{"bad cadence", func(c *Config) { c.Rebalancing = "weekly" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testConfig(rng.From, rng.To)
			c.mutate(&cfg)
			if _, err := Run(cfg, feed); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Run() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRun_AbortsOnMissingPrice(t *testing.T) {
	// B has no price at or before the first event day: the run aborts
	// instead of inventing a value.
	feed := NewFeed("USD")
	fillPrices(feed, "A", date.Range{From: day(2025, time.January, 1), To: day(2025, time.March, 31)}, 100)
	fillPrices(feed, "B", date.Range{From: day(2025, time.February, 1), To: day(2025, time.March, 31)}, 100)

	cfg := testConfig(day(2025, time.January, 1), day(2025, time.March, 31))
	if _, err := Run(cfg, feed); !errors.Is(err, ErrMissingPrice) {
		t.Errorf("Run() error = %v, want ErrMissingPrice", err)
	}
}

func TestWithdraw_CashFirstThenProRata(t *testing.T) {
	// 20,000 cash on a 1,000,000 portfolio withdrawing 50,000: cash goes
	// first, the remaining 30,000 is sold pro-rata by target weight.
	cfg := testConfig(day(2025, time.January, 1), day(2025, time.December, 31))
	cfg.WithdrawalRate = 0.2 // 5% per quarterly event

	s := &simulation{
		cfg:   cfg,
		cur:   "USD",
		state: NewState(usd(1_000_000), []string{"A", "B"}),
		taxes: NewTaxLedger(0, usd(0)),
		log:   &EventLog{},
	}
	s.cumWithdrawn = usd(0)
	s.cumCost = usd(0)
	s.state.Buy("A", usd(588_000), usd(100), 0)
	s.state.Buy("B", usd(392_000), usd(100), 0)
	// 20,000 cash left.

	prices := map[string]Money{"A": usd(100), "B": usd(100)}
	if err := s.withdraw(day(2025, time.April, 1), prices); err != nil {
		t.Fatalf("withdraw() error = %v", err)
	}

	var w *WithdrawalExecuted
	var gains []GainRealized
	for e := range s.log.All() {
		switch v := e.(type) {
		case WithdrawalExecuted:
			w = &v
		case GainRealized:
			gains = append(gains, v)
		case Shortfall:
			t.Errorf("unexpected shortfall: %+v", v)
		}
	}
	if w == nil {
		t.Fatal("expected a withdrawal event")
	}
	if !w.Target.Equal(usd(50_000)) {
		t.Errorf("target = %s, want 50000", w.Target)
	}
	if !w.FromCash.Equal(usd(20_000)) {
		t.Errorf("from cash = %s, want 20000", w.FromCash)
	}
	if !moneyEquals(w.FromSales, usd(30_000)) {
		t.Errorf("from sales = %s, want 30000", w.FromSales)
	}
	// each sale leg reports its (here zero) gain.
	if len(gains) != 2 {
		t.Errorf("got %d realized-gain events, want one per leg", len(gains))
	}
	// pro-rata by target weight: A funds 18,000 at 100, B funds 12,000.
	if got := s.state.Shares("A"); !got.Equal(Q(5700)) {
		t.Errorf("shares of A = %s, want 5700", got)
	}
	if got := s.state.Shares("B"); !got.Equal(Q(3800)) {
		t.Errorf("shares of B = %s, want 3800", got)
	}
}

func TestWithdraw_ShortfallIsReported(t *testing.T) {
	cfg := testConfig(day(2025, time.January, 1), day(2025, time.December, 31))
	cfg.WithdrawalRate = 4 // 100% per quarterly event

	s := &simulation{
		cfg:   cfg,
		cur:   "USD",
		state: NewState(usd(15_000), []string{"A", "B"}),
		taxes: NewTaxLedger(0, usd(0)),
		log:   &EventLog{},
	}
	s.cumWithdrawn = usd(0)
	s.cumCost = usd(0)
	s.state.Buy("A", usd(10_000), usd(100), 0)
	// B holds nothing; 5,000 cash left; total value 15,000.

	prices := map[string]Money{"A": usd(100), "B": usd(100)}
	if err := s.withdraw(day(2025, time.April, 1), prices); err != nil {
		t.Fatalf("withdraw() error = %v", err)
	}

	shortfalls := s.log.Shortfalls()
	if len(shortfalls) != 1 {
		t.Fatalf("got %d shortfalls, want 1", len(shortfalls))
	}
	sf := shortfalls[0]
	if sf.Reason != "withdrawal" {
		t.Errorf("reason = %q, want withdrawal", sf.Reason)
	}
	if !sf.Requested.Equal(usd(15_000)) {
		t.Errorf("requested = %s, want 15000", sf.Requested)
	}
	// 5,000 cash plus the whole A position sold pro-rata (60% of the
	// 10,000 remainder): 11,000 funded, the rest is missing.
	if !moneyEquals(sf.Funded, usd(11_000)) {
		t.Errorf("funded = %s, want 11000", sf.Funded)
	}
}
