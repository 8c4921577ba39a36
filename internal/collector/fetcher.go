package collector

import (
	"context"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// PriceFetcher retrieves daily price history. Points may come back in any order.
type PriceFetcher interface {
	FetchPriceHistory(ctx context.Context, symbol string) ([]model.PricePoint, error)
	Name() string
}

// ChainFetcher retrieves the option chain observed on a given date.
// An empty result is a valid "no data" response.
type ChainFetcher interface {
	FetchOptionChain(ctx context.Context, symbol string, date model.Date) ([]model.OptionQuote, error)
	Name() string
}
