package backtest

import (
	"fmt"
	"slices"

	"github.com/etnz/backtest/date"
)

// tradeThreshold is the smallest notional worth trading during a rebalance.
// Differences below one unit of currency are left to drift.
var tradeThreshold = 1.0

// simulation is the state of one run being stepped day by day. Each run owns
// its state, tax ledger and log; only the feed is shared, read-only.
type simulation struct {
	cfg     Config
	feed    *Feed
	cadence date.Period
	cur     string

	state *State
	taxes *TaxLedger
	log   *EventLog

	snapshots []Snapshot

	invested  bool
	lastCycle date.Date // start of the cadence period last processed

	cumWithdrawn     Money
	cumDividendGross Money
	cumDividendNet   Money
	cumDividendTax   Money
	cumCapitalTax    Money
	cumCost          Money
}

// Run executes one simulation and returns its immutable result.
//
// The run is purely sequential and deterministic: identical configuration and
// feed data produce identical event logs and snapshots.
func Run(cfg Config, feed *Feed) (*Result, error) {
	if err := cfg.Validate(feed); err != nil {
		return nil, err
	}
	cadence, _ := cfg.cadence() // validated above
	cur := cfg.currencyOrDefault()

	days := slices.Collect(feed.TradingDays(cfg.Range()))
	if len(days) == 0 {
		return nil, fmt.Errorf("no trading day in %s: %w", cfg.Range(), ErrMissingPrice)
	}

	zero := M(0, cur)
	s := &simulation{
		cfg:     cfg,
		feed:    feed,
		cadence: cadence,
		cur:     cur,
		state:   NewState(M(cfg.InitialCapital, cur), cfg.tickers()),
		taxes:   NewTaxLedger(cfg.CapitalTax, M(cfg.Exemption, cur)),
		log:     &EventLog{},

		cumWithdrawn:     zero,
		cumDividendGross: zero,
		cumDividendNet:   zero,
		cumDividendTax:   zero,
		cumCapitalTax:    zero,
		cumCost:          zero,
	}

	for i, day := range days {
		firstOfYear := i == 0 || days[i-1].Year() != day.Year()
		lastOfYear := i == len(days)-1 || days[i+1].Year() != day.Year()
		lastOfMonth := lastOfYear || days[i+1].Month() != day.Month()
		lastDay := i == len(days)-1

		// 1. Dividends going ex today on held instruments.
		s.processDividends(day)

		// 2. First trading day of a new cadence period: initial investment,
		// then withdrawal, then rebalancing. Withdrawal runs first so that
		// rebalancing targets reflect post-withdrawal capital.
		if cycle := day.StartOf(s.cadence); cycle != s.lastCycle {
			s.lastCycle = cycle
			if err := s.processCycle(day); err != nil {
				return nil, err
			}
		}

		// 3. Last trading day of the year: settle the year. The liability is
		// recorded, not deducted.
		if lastOfYear {
			settlement, err := s.taxes.SettleYear(day.Year())
			if err != nil {
				return nil, err
			}
			s.log.append(TaxSettled{On: day, Settlement: settlement})
		}

		// 4. First trading day of January: pay the deferred liability of the
		// settled prior year. On the final day of the run the liability
		// settled in step 3 is paid immediately, so the result carries no
		// hidden debt.
		if (firstOfYear && i > 0) || lastDay {
			if err := s.payDeferredTax(day); err != nil {
				return nil, err
			}
		}

		// 5. Last trading day of the month: snapshot.
		if lastOfMonth {
			if err := s.snapshot(day); err != nil {
				return nil, err
			}
		}
	}

	return s.result(days[0], days[len(days)-1])
}

// pricesFor values every configured instrument on a day, forward-filling
// from the last known close. A missing price aborts the run.
func (s *simulation) pricesFor(day date.Date) (map[string]Money, error) {
	prices := make(map[string]Money, len(s.cfg.Targets))
	for _, ticker := range s.state.Tickers() {
		p, err := s.feed.priceOrFail(ticker, day)
		if err != nil {
			return nil, err
		}
		prices[ticker] = p
	}
	return prices, nil
}

func (s *simulation) processDividends(day date.Date) {
	for _, ticker := range s.state.Tickers() {
		shares := s.state.Shares(ticker)
		if !shares.IsPositive() {
			continue
		}
		perShare, ok := s.feed.Dividend(ticker, day)
		if !ok {
			continue
		}
		gross, withheld, net := s.state.ApplyDividend(ticker, perShare, s.cfg.DividendTax)
		s.log.append(DividendReceived{On: day, Ticker: ticker, PerShare: perShare, Shares: shares, Gross: gross})
		s.log.append(DividendTaxWithheld{On: day, Ticker: ticker, Tax: withheld})
		s.cumDividendGross = s.cumDividendGross.Add(gross)
		s.cumDividendNet = s.cumDividendNet.Add(net)
		s.cumDividendTax = s.cumDividendTax.Add(withheld)
	}
}

// processCycle runs the scheduled withdrawal and rebalancing of an event day.
func (s *simulation) processCycle(day date.Date) error {
	prices, err := s.pricesFor(day)
	if err != nil {
		return err
	}
	if !s.invested {
		s.initialInvest(day, prices)
	}
	if err := s.withdraw(day, prices); err != nil {
		return err
	}
	return s.rebalance(day, prices)
}

// initialInvest deploys the starting capital into the target allocation on
// the first scheduled event day. Until that day the portfolio is cash only.
// The initial purchase establishes the cost basis and realizes no gain; it
// carries no transaction cost.
func (s *simulation) initialInvest(day date.Date, prices map[string]Money) {
	capital := s.state.Cash()
	for _, ticker := range s.state.Tickers() {
		notional := capital.Scale(s.cfg.Targets[ticker])
		if !notional.IsPositive() {
			continue
		}
		shares, _ := s.state.Buy(ticker, notional, prices[ticker], 0)
		s.log.append(RebalanceTrade{
			On: day, Ticker: ticker, Shares: shares,
			Price: prices[ticker], Notional: notional, Cost: M(0, s.cur),
			Initial: true,
		})
	}
	s.invested = true
}

// withdraw funds the scheduled withdrawal: cash first, then pro-rata sales
// by target weight. Underfunding is a shortfall event, never a failure.
func (s *simulation) withdraw(day date.Date, prices map[string]Money) error {
	rate := s.cfg.withdrawalPerEvent()
	if rate <= 0 {
		return nil
	}
	target := s.state.MarketValue(prices).Scale(rate)
	if !target.IsPositive() {
		return nil
	}

	fromCash := s.state.Cash().Min(target)
	s.state.Debit(fromCash)
	remaining := target.Sub(fromCash)

	fromSales := M(0, s.cur)
	if remaining.IsPositive() {
		fromSales = s.raiseCash(day, prices, remaining)
	}

	funded := fromCash.Add(fromSales)
	s.log.append(WithdrawalExecuted{On: day, Target: target, FromCash: fromCash, FromSales: fromSales})
	if funded.LessThan(target) {
		s.log.append(Shortfall{On: day, Reason: "withdrawal", Requested: target, Funded: funded})
	}
	s.cumWithdrawn = s.cumWithdrawn.Add(funded)
	return nil
}

// raiseCash sells pro-rata across instruments, in proportion to target
// weights, to raise up to amount of cash, and debits what it raised. Each
// sale leg reports its realized gain to the tax ledger under the current
// year. It returns the amount actually raised and debited.
//
// Leg notionals are grossed up by the transaction cost so the net proceeds
// land on the requested amount when holdings suffice.
func (s *simulation) raiseCash(day date.Date, prices map[string]Money, amount Money) Money {
	grossUp := 1.0
	if s.cfg.CostRate < 1 {
		grossUp = 1 / (1 - s.cfg.CostRate)
	}
	for _, ticker := range s.state.Tickers() {
		notional := amount.Scale(s.cfg.Targets[ticker] * grossUp)
		if !notional.IsPositive() {
			continue
		}
		shares, _, cost, gain := s.state.SellForCash(ticker, notional, prices[ticker], s.cfg.CostRate)
		if !shares.IsPositive() {
			continue
		}
		s.taxes.RecordGain(gain, day)
		s.log.append(GainRealized{On: day, Ticker: ticker, Amount: gain})
		s.cumCost = s.cumCost.Add(cost)
	}
	raised := s.state.Cash().Min(amount)
	s.state.Debit(raised)
	return raised
}

// rebalance brings every position back to its target weight: over-weight
// instruments are sold first to raise cash, then under-weight instruments
// are bought with the freed cash plus the free cash. Both legs pay the
// transaction cost; every sell reports its gain to the tax ledger.
func (s *simulation) rebalance(day date.Date, prices map[string]Money) error {
	total := s.state.MarketValue(prices)
	threshold := M(tradeThreshold, s.cur)

	// target deviation per instrument, before any trade of this rebalance.
	diffs := make(map[string]Money, len(s.cfg.Targets))
	for _, ticker := range s.state.Tickers() {
		current := prices[ticker].Mul(s.state.Shares(ticker))
		diffs[ticker] = total.Scale(s.cfg.Targets[ticker]).Sub(current)
	}

	// sell legs first, to raise cash for the buy legs.
	for _, ticker := range s.state.Tickers() {
		excess := diffs[ticker].Neg()
		if !excess.GreaterThan(threshold) {
			continue
		}
		shares, proceeds, cost, gain := s.state.SellForCash(ticker, excess, prices[ticker], s.cfg.CostRate)
		if !shares.IsPositive() {
			continue
		}
		s.taxes.RecordGain(gain, day)
		s.log.append(RebalanceTrade{
			On: day, Ticker: ticker, Shares: shares.Neg(),
			Price: prices[ticker], Notional: proceeds, Cost: cost,
		})
		s.log.append(GainRealized{On: day, Ticker: ticker, Amount: gain})
		s.cumCost = s.cumCost.Add(cost)
	}

	// buy legs, capped by the cash actually available.
	for _, ticker := range s.state.Tickers() {
		missing := diffs[ticker]
		if !missing.GreaterThan(threshold) {
			continue
		}
		affordable := s.state.Cash().Scale(1 / (1 + s.cfg.CostRate))
		notional := missing.Min(affordable)
		if !notional.GreaterThan(threshold) {
			continue
		}
		shares, cost := s.state.Buy(ticker, notional, prices[ticker], s.cfg.CostRate)
		s.log.append(RebalanceTrade{
			On: day, Ticker: ticker, Shares: shares,
			Price: prices[ticker], Notional: notional, Cost: cost,
		})
		s.cumCost = s.cumCost.Add(cost)
	}
	return nil
}

// payDeferredTax pays every settled, unpaid liability: cash first, then
// pro-rata sales exactly as a withdrawal. Gains realized by that forced sale
// belong to the current year's bucket, a second-order effect of the deferral.
func (s *simulation) payDeferredTax(day date.Date) error {
	years := s.taxes.Unpaid()
	if len(years) == 0 {
		return nil
	}
	prices, err := s.pricesFor(day)
	if err != nil {
		return err
	}
	for _, year := range years {
		due, _ := s.taxes.PaymentDue(year)
		if err := s.taxes.MarkPaid(year); err != nil {
			return err
		}
		if due.IsZero() {
			// a zero liability is settled and paid, but not worth an event.
			continue
		}
		fromCash := s.state.Cash().Min(due)
		s.state.Debit(fromCash)
		remaining := due.Sub(fromCash)

		fromSales := M(0, s.cur)
		if remaining.IsPositive() {
			fromSales = s.raiseCash(day, prices, remaining)
		}
		funded := fromCash.Add(fromSales)
		s.log.append(TaxPaid{On: day, Year: year, Amount: funded, FromCash: fromCash, FromSales: fromSales})
		if funded.LessThan(due) {
			s.log.append(Shortfall{On: day, Reason: "tax", Requested: due, Funded: funded})
		}
		s.cumCapitalTax = s.cumCapitalTax.Add(funded)
	}
	return nil
}

func (s *simulation) snapshot(day date.Date) error {
	prices, err := s.pricesFor(day)
	if err != nil {
		return err
	}
	s.snapshots = append(s.snapshots, Snapshot{
		On:           day,
		Value:        s.state.MarketValue(prices),
		Cash:         s.state.Cash(),
		Weights:      s.state.Weights(prices),
		CumTaxPaid:   s.cumDividendTax.Add(s.cumCapitalTax),
		CumWithdrawn: s.cumWithdrawn,
		CumDividends: s.cumDividendNet,
	})
	return nil
}

func (s *simulation) result(first, last date.Date) (*Result, error) {
	final := s.snapshots[len(s.snapshots)-1]
	r := &Result{
		Name:      s.cfg.Name,
		Config:    s.cfg,
		Snapshots: s.snapshots,
		Events:    s.log,
	}
	r.Metrics = newMetrics(s.cfg, date.Range{From: first, To: last}, s.snapshots, final.Value, metricTotals{
		withdrawn:     s.cumWithdrawn,
		dividendGross: s.cumDividendGross,
		dividendNet:   s.cumDividendNet,
		taxPaid:       s.cumDividendTax.Add(s.cumCapitalTax),
		cost:          s.cumCost,
	})
	r.Years = annualSummary(s.cfg, s.snapshots, s.log)
	return r, nil
}
