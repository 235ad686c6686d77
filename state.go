package backtest

import (
	"slices"
)

// holding is one instrument position. The average-cost basis is kept as an
// explicit running aggregate (total cost of the held shares), updated on
// every buy and reduced proportionally on every sell, so long simulations do
// not accumulate drift from re-derived bases.
type holding struct {
	shares    Quantity
	totalCost Money
}

// State is the mutable state of one simulation run: per-instrument holdings
// and free cash. It is owned by a single engine; it is never shared between
// concurrent runs.
type State struct {
	cash     Money
	tickers  []string // lexical order, for deterministic mutation
	holdings map[string]*holding
}

// NewState returns a state holding only the initial cash.
func NewState(cash Money, tickers []string) *State {
	s := &State{
		cash:     cash,
		tickers:  slices.Clone(tickers),
		holdings: make(map[string]*holding, len(tickers)),
	}
	slices.Sort(s.tickers)
	for _, t := range s.tickers {
		s.holdings[t] = &holding{shares: Q(0), totalCost: M(0, cash.Currency())}
	}
	return s
}

// Cash returns the free cash.
func (s *State) Cash() Money { return s.cash }

// Shares returns the share count held for ticker.
func (s *State) Shares(ticker string) Quantity {
	h, ok := s.holdings[ticker]
	if !ok {
		return Q(0)
	}
	return h.shares
}

// CostBasis returns the total average-cost basis of the held shares of ticker.
func (s *State) CostBasis(ticker string) Money {
	h, ok := s.holdings[ticker]
	if !ok {
		return M(0, s.cash.Currency())
	}
	return h.totalCost
}

// Tickers returns the instruments of the state in lexical order.
func (s *State) Tickers() []string { return slices.Clone(s.tickers) }

// MarketValue returns cash plus the value of all positions at the given
// per-instrument prices.
func (s *State) MarketValue(prices map[string]Money) Money {
	total := s.cash
	for _, t := range s.tickers {
		h := s.holdings[t]
		if h.shares.IsZero() {
			continue
		}
		total = total.Add(prices[t].Mul(h.shares))
	}
	return total
}

// ApplyDividend credits the net dividend to cash: gross = shares * perShare,
// withheld = gross * rate, cash += gross - withheld. Withholding happens the
// same day the dividend is received, it is never deferred.
func (s *State) ApplyDividend(ticker string, perShare Money, withholdingRate float64) (gross, withheld, net Money) {
	h := s.holdings[ticker]
	gross = perShare.Mul(h.shares)
	withheld = gross.Scale(withholdingRate)
	net = gross.Sub(withheld)
	s.cash = s.cash.Add(net)
	return gross, withheld, net
}

// Buy acquires notional worth of ticker at price, spending notional plus the
// transaction cost from cash, and growing the average-cost aggregate by the
// notional. The caller guarantees cash covers notional*(1+costRate).
func (s *State) Buy(ticker string, notional, price Money, costRate float64) (shares Quantity, cost Money) {
	h := s.holdings[ticker]
	shares = notional.DivPrice(price)
	cost = notional.Scale(costRate)
	h.shares = h.shares.Add(shares)
	h.totalCost = h.totalCost.Add(notional)
	s.cash = s.cash.Sub(notional).Sub(cost)
	return shares, cost
}

// SellForCash sells up to notional worth of ticker at price. It returns the
// shares sold, the gross proceeds, the transaction cost deducted from the
// cash credit, and the realized gain against the average-cost basis.
//
// Selling with zero shares held is a defined no-op: zero proceeds, zero gain.
func (s *State) SellForCash(ticker string, notional, price Money, costRate float64) (shares Quantity, proceeds, cost, gain Money) {
	zero := M(0, s.cash.Currency())
	h, ok := s.holdings[ticker]
	if !ok || h.shares.IsZero() || !price.IsPositive() {
		return Q(0), zero, zero, zero
	}
	shares = notional.DivPrice(price).Min(h.shares)
	if !shares.IsPositive() {
		return Q(0), zero, zero, zero
	}
	proceeds = price.Mul(shares)
	cost = proceeds.Scale(costRate)

	// realized gain = proceeds before cost - average cost of the shares sold.
	costOfSale := h.totalCost.Mul(shares).Div(h.shares)
	gain = proceeds.Sub(costOfSale)

	h.totalCost = h.totalCost.Sub(costOfSale)
	h.shares = h.shares.Sub(shares)
	s.cash = s.cash.Add(proceeds).Sub(cost)
	return shares, proceeds, cost, gain
}

// Debit removes amount from cash. The caller guarantees amount <= cash.
func (s *State) Debit(amount Money) { s.cash = s.cash.Sub(amount) }

// Weights returns the market-value fraction of each instrument at the given
// prices. The cash fraction is the remainder to 1.
func (s *State) Weights(prices map[string]Money) map[string]Percent {
	total := s.MarketValue(prices)
	weights := make(map[string]Percent, len(s.tickers))
	if !total.IsPositive() {
		return weights
	}
	for _, t := range s.tickers {
		value := prices[t].Mul(s.holdings[t].shares)
		weights[t] = Percent(100 * value.AsFloat() / total.AsFloat())
	}
	return weights
}
