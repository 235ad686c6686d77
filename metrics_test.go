package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/etnz/backtest/date"
)

func closeTo(got, want, eps float64) bool { return math.Abs(got-want) <= eps }

func TestPeriodReturns(t *testing.T) {
	got := periodReturns([]float64{100, 110, 99})
	if len(got) != 2 || !closeTo(got[0], 0.10, 1e-12) || !closeTo(got[1], -0.10, 1e-12) {
		t.Errorf("periodReturns() = %v, want [0.10 -0.10]", got)
	}
	if got := periodReturns([]float64{100}); got != nil {
		t.Errorf("periodReturns() on one value = %v, want nil", got)
	}
}

func TestStddev(t *testing.T) {
	// sample stddev of 1,2,3,4 is sqrt(5/3).
	if got := stddev([]float64{1, 2, 3, 4}); !closeTo(got, math.Sqrt(5.0/3.0), 1e-12) {
		t.Errorf("stddev() = %v, want %v", got, math.Sqrt(5.0/3.0))
	}
	if got := stddev([]float64{7}); got != 0 {
		t.Errorf("stddev() on one value = %v, want 0", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// peak 120, trough 80: a third lost from the top.
	if got := maxDrawdown([]float64{100, 120, 90, 100, 80}); !closeTo(got, 1.0/3.0, 1e-12) {
		t.Errorf("maxDrawdown() = %v, want 1/3", got)
	}
	if got := maxDrawdown([]float64{100, 110, 120}); got != 0 {
		t.Errorf("maxDrawdown() on a rising series = %v, want 0", got)
	}
}

func TestNewMetrics(t *testing.T) {
	cfg := Config{InitialCapital: 1_000_000, Currency: "USD", RiskFree: 0.03}
	rng := date.Range{From: day(2024, time.January, 1), To: day(2025, time.December, 31)}

	snapshots := []Snapshot{
		{On: day(2024, time.June, 30), Value: usd(1_050_000)},
		{On: day(2024, time.December, 31), Value: usd(1_100_000)},
		{On: day(2025, time.June, 30), Value: usd(1_000_000)},
		{On: day(2025, time.December, 31), Value: usd(1_210_000)},
	}
	zero := usd(0)
	m := newMetrics(cfg, rng, snapshots, usd(1_210_000), metricTotals{
		withdrawn: usd(50_000), dividendGross: zero, dividendNet: zero, taxPaid: usd(1_000), cost: zero,
	})

	if !closeTo(float64(m.TotalReturn), 21, 1e-9) {
		t.Errorf("total return = %v, want 21%%", m.TotalReturn)
	}
	// 1.21 over just under two years: a touch above 10% a year.
	years := rng.Years()
	wantCAGR := 100 * (math.Pow(1.21, 1/years) - 1)
	if !closeTo(float64(m.CAGR), wantCAGR, 1e-9) {
		t.Errorf("CAGR = %v, want %v", m.CAGR, wantCAGR)
	}
	wantVol := 100 * stddev(periodReturns([]float64{1_050_000, 1_100_000, 1_000_000, 1_210_000})) * math.Sqrt(12)
	if !closeTo(float64(m.Volatility), wantVol, 1e-9) {
		t.Errorf("volatility = %v, want %v", m.Volatility, wantVol)
	}
	wantSharpe := (float64(m.CAGR)/100 - 0.03) / (wantVol / 100)
	if !closeTo(m.Sharpe, wantSharpe, 1e-9) {
		t.Errorf("sharpe = %v, want %v", m.Sharpe, wantSharpe)
	}
	// 1.1M down to 1.0M.
	if !closeTo(float64(m.MaxDrawdown), 100*(1.0-1_000_000.0/1_100_000.0), 1e-9) {
		t.Errorf("max drawdown = %v", m.MaxDrawdown)
	}
	if !m.TotalWithdrawn.Equal(usd(50_000)) || !m.TotalTaxPaid.Equal(usd(1_000)) {
		t.Errorf("totals not carried: %+v", m)
	}
}

func TestAnnualSummary(t *testing.T) {
	cfg := Config{InitialCapital: 1_000_000, Currency: "USD"}

	log := &EventLog{}
	log.append(WithdrawalExecuted{On: day(2025, time.April, 1), Target: usd(12_500), FromCash: usd(10_000), FromSales: usd(2_500)})
	log.append(DividendReceived{On: day(2025, time.May, 15), Ticker: "A", Gross: usd(600)})
	log.append(DividendTaxWithheld{On: day(2025, time.May, 15), Ticker: "A", Tax: usd(90)})
	log.append(RebalanceTrade{On: day(2025, time.July, 1), Ticker: "A", Cost: usd(40)})
	log.append(TaxPaid{On: day(2026, time.January, 2), Year: 2025, Amount: usd(5_000), FromCash: usd(5_000), FromSales: usd(0)})

	snapshots := []Snapshot{
		{On: day(2025, time.June, 30), Value: usd(1_050_000)},
		{On: day(2025, time.December, 31), Value: usd(1_100_000)},
		{On: day(2026, time.June, 30), Value: usd(1_150_000)},
	}

	rows := annualSummary(cfg, snapshots, log)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	y2025 := rows[0]
	if y2025.Year != 2025 {
		t.Fatalf("first row year = %d, want 2025", y2025.Year)
	}
	if !y2025.StartValue.Equal(usd(1_000_000)) {
		t.Errorf("2025 start = %s, want the initial capital", y2025.StartValue)
	}
	// no capital tax was paid during 2025 itself.
	if !y2025.StartValueAfterCapitalTax.Equal(usd(1_000_000)) {
		t.Errorf("2025 start after tax = %s, want 1000000", y2025.StartValueAfterCapitalTax)
	}
	if !y2025.EndValue.Equal(usd(1_100_000)) {
		t.Errorf("2025 end = %s, want the December snapshot", y2025.EndValue)
	}
	if !y2025.Withdrawn.Equal(usd(12_500)) {
		t.Errorf("2025 withdrawn = %s, want 12500", y2025.Withdrawn)
	}
	if !y2025.DividendGross.Equal(usd(600)) || !y2025.DividendNet.Equal(usd(510)) || !y2025.DividendTax.Equal(usd(90)) {
		t.Errorf("2025 dividends = %s/%s/%s, want 600/510/90", y2025.DividendGross, y2025.DividendNet, y2025.DividendTax)
	}
	if !y2025.Cost.Equal(usd(40)) {
		t.Errorf("2025 cost = %s, want 40", y2025.Cost)
	}
	if !closeTo(float64(y2025.Return), 10, 1e-9) {
		t.Errorf("2025 return = %v, want 10%%", y2025.Return)
	}

	y2026 := rows[1]
	if !y2026.StartValue.Equal(usd(1_100_000)) {
		t.Errorf("2026 start = %s, want the 2025 close", y2026.StartValue)
	}
	// the January payment of the 2025 liability lands in the 2026 row.
	if !y2026.CapitalTaxPaid.Equal(usd(5_000)) {
		t.Errorf("2026 capital tax = %s, want 5000", y2026.CapitalTaxPaid)
	}
	if !y2026.StartValueAfterCapitalTax.Equal(usd(1_095_000)) {
		t.Errorf("2026 start after tax = %s, want 1095000", y2026.StartValueAfterCapitalTax)
	}
	wantReturn := 100 * (1_150_000.0/1_095_000.0 - 1)
	if !closeTo(float64(y2026.Return), wantReturn, 1e-9) {
		t.Errorf("2026 return = %v, want %v", y2026.Return, wantReturn)
	}
}
