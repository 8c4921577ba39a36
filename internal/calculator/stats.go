package calculator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// MAE returns the mean absolute error of the samples. ok is false for an empty series.
func MAE(samples []model.AccuracySample) (mae float64, ok bool) {
	if len(samples) == 0 {
		return 0, false
	}
	abs := make([]float64, len(samples))
	for i, s := range samples {
		abs[i] = math.Abs(s.Error)
	}
	return stat.Mean(abs, nil), true
}

// Correlation returns the Pearson correlation of two accuracy series over the
// dates they share. A later sample overwrites an earlier one with the same date.
// ok is false with fewer than two shared dates. When either series has no
// variance over the shared dates the result is 0.
func Correlation(a, b []model.AccuracySample) (r float64, ok bool) {
	am := byDate(a)
	bm := byDate(b)

	common := make([]model.Date, 0, len(am))
	for d := range am {
		if _, ok := bm[d]; ok {
			common = append(common, d)
		}
	}
	if len(common) < 2 {
		return 0, false
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	if constant(common, am) || constant(common, bm) {
		return 0, true
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, d := range common {
		x, y := am[d], bm[d]
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		sumY2 += y * y
	}
	n := float64(len(common))

	numerator := n*sumXY - sumX*sumY
	varX := n*sumX2 - sumX*sumX
	varY := n*sumY2 - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0, true
	}
	return numerator / (math.Sqrt(varX) * math.Sqrt(varY)), true
}

// constant reports whether m holds the same value on every date.
func constant(dates []model.Date, m map[model.Date]float64) bool {
	first := m[dates[0]]
	for _, d := range dates[1:] {
		if m[d] != first {
			return false
		}
	}
	return true
}

func byDate(samples []model.AccuracySample) map[model.Date]float64 {
	m := make(map[model.Date]float64, len(samples))
	for _, s := range samples {
		m[s.Date] = s.Error
	}
	return m
}
