package collector

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/selector"
	"github.com/taylorsk/volatility-analysis/internal/timeseries"
)

// ErrNoData is returned when the price provider answers with an empty history.
var ErrNoData = errors.New("no price data")

// Collector binds the providers to one symbol.
type Collector struct {
	Prices        PriceFetcher
	Chains        ChainFetcher
	Symbol        string
	RetentionDays int
}

// NewCollector creates a new Collector.
func NewCollector(prices PriceFetcher, chains ChainFetcher, symbol string, retentionDays int) *Collector {
	return &Collector{Prices: prices, Chains: chains, Symbol: symbol, RetentionDays: retentionDays}
}

// CollectPrices fetches the price history and returns it as a store trimmed to
// the trailing retention window ending at the latest date.
func (c *Collector) CollectPrices(ctx context.Context) (*timeseries.Store, error) {
	points, err := c.Prices.FetchPriceHistory(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch %s history from %s: %w", c.Symbol, c.Prices.Name(), err)
	}
	store := timeseries.NewStore(points)
	if store.Len() == 0 {
		return nil, fmt.Errorf("%s from %s: %w", c.Symbol, c.Prices.Name(), ErrNoData)
	}
	if c.RetentionDays > 0 {
		dropped := store.RetainTrailing(c.RetentionDays)
		log.Printf("[INFO] retained %d %s points from %s to %s (dropped %d older)",
			store.Len(), c.Symbol, store.First().Date, store.Latest().Date, dropped)
	}
	return store, nil
}

// ChainSource returns the per-date chain query for this collector's symbol.
func (c *Collector) ChainSource() selector.ChainSource {
	return selector.ChainFunc(func(ctx context.Context, anchor model.Date) ([]model.OptionQuote, error) {
		return c.Chains.FetchOptionChain(ctx, c.Symbol, anchor)
	})
}
