package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// When Prices is nil a deterministic series of Days weekday closes around
// Price is generated; when Chains has no entry for a date a synthetic chain
// is built around that day's close.
type MockFetcher struct {
	Price     float64
	Days      int
	Prices    []model.PricePoint
	PriceErr  error
	Chains    map[model.Date][]model.OptionQuote
	ChainErrs map[model.Date]error

	ChainCalls []model.Date
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPriceHistory(_ context.Context, _ string) ([]model.PricePoint, error) {
	if m.PriceErr != nil {
		return nil, m.PriceErr
	}
	if m.Prices == nil {
		m.Prices = generateMockPrices(m.Price, m.Days, time.Now())
	}
	return m.Prices, nil
}

func (m *MockFetcher) FetchOptionChain(_ context.Context, symbol string, date model.Date) ([]model.OptionQuote, error) {
	m.ChainCalls = append(m.ChainCalls, date)
	if err, ok := m.ChainErrs[date]; ok {
		return nil, err
	}
	if chain, ok := m.Chains[date]; ok {
		return chain, nil
	}
	spot := m.Price
	for _, p := range m.Prices {
		if p.Date == date {
			spot = p.Close
			break
		}
	}
	return generateMockChain(symbol, date, spot), nil
}

// generateMockPrices produces count weekday closes ending at end, oscillating
// gently around basePrice.
func generateMockPrices(basePrice float64, count int, end time.Time) []model.PricePoint {
	points := make([]model.PricePoint, 0, count)
	d := model.DateOf(end)
	for len(points) < count {
		if wd := d.Time().Weekday(); wd != time.Saturday && wd != time.Sunday {
			i := float64(count - len(points))
			p := basePrice * (1 + 0.02*math.Sin(i/7) + 0.005*math.Cos(i*1.3))
			points = append(points, model.PricePoint{Date: d, Close: p})
		}
		d = d.AddDays(-1)
	}
	// generated newest first; reverse into chronological order
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

// generateMockChain lists calls on the next eight Fridays with strikes every 5
// points around spot.
func generateMockChain(symbol string, date model.Date, spot float64) []model.OptionQuote {
	var chain []model.OptionQuote
	exp := date.AddDays(1)
	for exp.Time().Weekday() != time.Friday {
		exp = exp.AddDays(1)
	}
	center := math.Round(spot/5) * 5
	for w := 0; w < 8; w++ {
		for k := -4; k <= 4; k++ {
			strike := center + float64(k)*5
			chain = append(chain, model.OptionQuote{
				ContractID:        fmt.Sprintf("%s%sC%08.0f", symbol, exp.Time().Format("060102"), strike*1000),
				Symbol:            symbol,
				Expiration:        exp,
				Strike:            strike,
				Kind:              model.Call,
				ObservationDate:   date,
				LastPrice:         math.Max(spot-strike, 0) + 1,
				ImpliedVolatility: 0.15 + 0.002*math.Abs(float64(k)),
			})
		}
		exp = exp.AddDays(7)
	}
	return chain
}
