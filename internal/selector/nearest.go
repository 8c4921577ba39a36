package selector

import (
	"math"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// ClosestDate returns the date nearest to target. On a tie the earliest entry
// in dates wins. ok is false for an empty slice.
func ClosestDate(dates []model.Date, target model.Date) (closest model.Date, ok bool) {
	if len(dates) == 0 {
		return 0, false
	}
	closest = dates[0]
	best := absDays(dates[0].DaysSince(target))
	for _, d := range dates[1:] {
		if dist := absDays(d.DaysSince(target)); dist < best {
			best = dist
			closest = d
		}
	}
	return closest, true
}

// ClosestStrike returns the strike nearest to target. On a tie the earliest
// entry wins, which is the smaller strike when strikes are ascending.
func ClosestStrike(strikes []float64, target float64) (closest float64, ok bool) {
	if len(strikes) == 0 {
		return 0, false
	}
	closest = strikes[0]
	best := math.Abs(strikes[0] - target)
	for _, s := range strikes[1:] {
		if dist := math.Abs(s - target); dist < best {
			best = dist
			closest = s
		}
	}
	return closest, true
}

func absDays(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
