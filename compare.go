package backtest

import (
	"fmt"
	"sync"
)

// Compare runs several configurations against the same feed, one goroutine
// per run. Runs share nothing but the read-only feed: each one owns its
// state, tax ledger and event log, so they are embarrassingly parallel.
//
// All configurations are validated before any run starts; results come back
// in configuration order.
func Compare(feed *Feed, configs ...Config) ([]*Result, error) {
	for i, cfg := range configs {
		if err := cfg.Validate(feed); err != nil {
			name := cfg.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("configuration %s: %w", name, err)
		}
	}

	results := make([]*Result, len(configs))
	errs := make([]error, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg Config) {
			defer wg.Done()
			results[i], errs[i] = Run(cfg, feed)
		}(i, cfg)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
	}
	return results, nil
}
