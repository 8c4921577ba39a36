package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/timeseries"
)

func zigzag(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		switch i % 3 {
		case 0:
			closes[i] = 100
		case 1:
			closes[i] = 101
		default:
			closes[i] = 99
		}
	}
	closes[30] = 104
	return closes
}

func TestIVAccuracy_SingleContract(t *testing.T) {
	pts := series(zigzag(40)...)
	store := timeseries.NewStore(pts)
	d0 := pts[0].Date

	contracts := []model.SelectedContract{{
		AnchorDate:        d0,
		ObservationDate:   d0,
		ImpliedVolatility: 0.2,
	}}
	got := IVAccuracy(contracts, store, 30)
	require.Len(t, got, 1)
	assert.Equal(t, d0, got[0].Date)

	want := math.Abs(104.0-100.0) - 100*0.2*math.Sqrt(30.0/252.0)
	assert.InDelta(t, want, got[0].Error, 1e-12)
}

func TestIVAccuracy_SignIsPreserved(t *testing.T) {
	pts := series(100, 100, 100)
	store := timeseries.NewStore(pts)
	got := IVAccuracy([]model.SelectedContract{{ObservationDate: pts[0].Date, ImpliedVolatility: 0.5}}, store, 2)
	require.Len(t, got, 1)
	assert.Less(t, got[0].Error, 0.0, "no move against a positive expected move is a negative error")
}

func TestIVAccuracy_Skips(t *testing.T) {
	pts := series(100, 0, 102, 103, 104)
	store := timeseries.NewStore(pts)
	contracts := []model.SelectedContract{
		{ObservationDate: pts[0].Date.AddDays(-5), ImpliedVolatility: 0.2}, // unknown date
		{ObservationDate: pts[4].Date, ImpliedVolatility: 0.2},              // end out of range
		{ObservationDate: pts[1].Date, ImpliedVolatility: 0.2},              // zero start close
		{ObservationDate: pts[2].Date, ImpliedVolatility: 0.2},              // ok
	}
	got := IVAccuracy(contracts, store, 2)
	require.Len(t, got, 1)
	assert.Equal(t, pts[2].Date, got[0].Date)
}

func TestHVAccuracy_UsesDefinedEstimatesOnly(t *testing.T) {
	pts := series(100, 102, 101, 103, 104, 102)
	store := timeseries.NewStore(pts)
	hv := model.VolatilitySeries{
		{}, {}, {Value: 0.3, Defined: true}, {Value: 0.25, Defined: true}, {Value: 0.2, Defined: true}, {},
	}
	got := HVAccuracy(store, hv, 2)
	// index 2 -> 4 ok, index 3 -> 5 ok, index 4 -> 6 out of range
	require.Len(t, got, 2)
	assert.Equal(t, pts[2].Date, got[0].Date)
	assert.Equal(t, pts[3].Date, got[1].Date)
	assert.InDelta(t, math.Abs(104.0-101.0)-ExpectedMove(101, 0.3, 2), got[0].Error, 1e-12)
	assert.InDelta(t, math.Abs(102.0-103.0)-ExpectedMove(103, 0.25, 2), got[1].Error, 1e-12)
}

func TestHVAccuracy_FromEstimator(t *testing.T) {
	pts := series(zigzag(70)...)
	store := timeseries.NewStore(pts)
	hv := HistoricalVolatility(store.Points(), 30)
	got := HVAccuracy(store, hv, 30)
	// anchors 30..39 have both a defined estimate and an in-range end
	require.Len(t, got, 10)
	assert.Equal(t, pts[30].Date, got[0].Date)
	assert.Equal(t, pts[39].Date, got[9].Date)
}

func TestRestrictToDates(t *testing.T) {
	pts := series(1, 2, 3, 4)
	all := []model.AccuracySample{
		{Date: pts[0].Date, Error: 1}, {Date: pts[1].Date, Error: 2}, {Date: pts[2].Date, Error: 3},
	}
	keep := []model.AccuracySample{{Date: pts[2].Date}, {Date: pts[0].Date}, {Date: pts[3].Date}}
	got := RestrictToDates(all, keep)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Error)
	assert.Equal(t, 3.0, got[1].Error)
}
