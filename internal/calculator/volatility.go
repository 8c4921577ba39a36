package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252.0

// LogReturns returns ln(close[i]/close[i-1]) for i >= 1. Position 0, and any
// return that is not finite (a zero close), is undefined.
func LogReturns(points []model.PricePoint) []model.Estimate {
	returns := make([]model.Estimate, len(points))
	for i := 1; i < len(points); i++ {
		r := math.Log(points[i].Close / points[i-1].Close)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns[i] = model.Estimate{Value: r, Defined: true}
	}
	return returns
}

// HistoricalVolatility computes the rolling annualized volatility of log returns.
// Position i (i >= window) holds the population standard deviation of the window
// returns ending at i, times sqrt(252), when all of them are defined. Every other
// position is undefined; so is the whole series when window < 2 or there are
// fewer than window points.
func HistoricalVolatility(points []model.PricePoint, window int) model.VolatilitySeries {
	hv := make(model.VolatilitySeries, len(points))
	if window < 2 || len(points) < window {
		return hv
	}

	returns := LogReturns(points)
	annualize := math.Sqrt(TradingDaysPerYear)
	buf := make([]float64, window)

	for i := window; i < len(points); i++ {
		complete := true
		for k := 0; k < window; k++ {
			r := returns[i-window+1+k]
			if !r.Defined {
				complete = false
				break
			}
			buf[k] = r.Value
		}
		if !complete {
			continue
		}
		_, variance := stat.PopMeanVariance(buf, nil)
		if variance < 0 {
			variance = 0 // rounding on an all-equal window
		}
		hv[i] = model.Estimate{Value: math.Sqrt(variance) * annualize, Defined: true}
	}
	return hv
}
