// Package backtest simulates a portfolio strategy over historical market
// data with realistic taxes. It is designed to be local-first and
// reproducible: a feed file and a configuration fully determine a run, byte
// for byte.
//
// The core functionalities include:
//   - Simulation Engine: stepping a portfolio day by day through a market
//     data feed, with scheduled withdrawals and rebalancing back to a fixed
//     target allocation.
//   - Two-Tier Tax Model: dividend withholding at source the day a dividend
//     is received, and an annual capital-gains settlement with exemption,
//     paid the following January, including the second-order gains the
//     payment's own forced sales realize.
//   - Event Log: an append-only record of every trade, dividend, tax and
//     shortfall, the full explanation of where the money went.
//   - Metrics: CAGR, annualized volatility, Sharpe ratio, maximum drawdown
//     and a per-year summary, derived from monthly snapshots.
//   - Data Persistence: feeds and results in human-readable,
//     version-controllable formats (JSONL and JSON).
//
// This package serves as the foundational logic for the `bt` command-line
// tool, ensuring that all operations are consistent and reproducible.
package backtest
