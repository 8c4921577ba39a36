package calculator

import (
	"math"

	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/timeseries"
)

// ExpectedMove is the one-sigma price move implied by an annualized volatility
// over horizon trading days.
func ExpectedMove(close, vol float64, horizon int) float64 {
	return close * vol * math.Sqrt(float64(horizon)/TradingDaysPerYear)
}

// sampleAt scores a volatility prediction made at index t against the realized
// move to t+horizon. ok is false when the end index is out of range or either
// close is not strictly positive.
func sampleAt(store *timeseries.Store, t, horizon int, vol float64) (model.AccuracySample, bool) {
	end := t + horizon
	if horizon <= 0 || t < 0 || end >= store.Len() {
		return model.AccuracySample{}, false
	}
	start, stop := store.At(t), store.At(end)
	if start.Close <= 0 || stop.Close <= 0 {
		return model.AccuracySample{}, false
	}
	actual := math.Abs(stop.Close - start.Close)
	expected := ExpectedMove(start.Close, vol, horizon)
	return model.AccuracySample{Date: start.Date, Error: actual - expected}, true
}

// IVAccuracy scores each contract's implied volatility, taken on its observation
// date, against the realized move horizon trading days later. Contracts whose
// date is not a known price date are skipped.
func IVAccuracy(contracts []model.SelectedContract, store *timeseries.Store, horizon int) []model.AccuracySample {
	var out []model.AccuracySample
	for _, c := range contracts {
		t, ok := store.Index(c.ObservationDate)
		if !ok {
			continue
		}
		if s, ok := sampleAt(store, t, horizon, c.ImpliedVolatility); ok {
			out = append(out, s)
		}
	}
	return out
}

// HVAccuracy scores the historical volatility estimate at every index where it
// is defined. hv must be index-aligned with store.
func HVAccuracy(store *timeseries.Store, hv model.VolatilitySeries, horizon int) []model.AccuracySample {
	var out []model.AccuracySample
	for t := 0; t < store.Len() && t < len(hv); t++ {
		if !hv[t].Defined {
			continue
		}
		if s, ok := sampleAt(store, t, horizon, hv[t].Value); ok {
			out = append(out, s)
		}
	}
	return out
}

// RestrictToDates keeps the samples whose date appears in keep, preserving order.
func RestrictToDates(samples []model.AccuracySample, keep []model.AccuracySample) []model.AccuracySample {
	dates := make(map[model.Date]struct{}, len(keep))
	for _, s := range keep {
		dates[s.Date] = struct{}{}
	}
	var out []model.AccuracySample
	for _, s := range samples {
		if _, ok := dates[s.Date]; ok {
			out = append(out, s)
		}
	}
	return out
}
