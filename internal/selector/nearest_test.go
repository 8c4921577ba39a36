package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

func TestClosestStrike_TieGoesToSmaller(t *testing.T) {
	got, ok := ClosestStrike([]float64{95, 100, 105}, 97.5)
	require.True(t, ok)
	assert.Equal(t, 95.0, got)

	got, _ = ClosestStrike([]float64{95, 100, 105}, 98)
	assert.Equal(t, 100.0, got)

	got, _ = ClosestStrike([]float64{95, 100, 105}, 500)
	assert.Equal(t, 105.0, got)
}

func TestClosestStrike_Empty(t *testing.T) {
	_, ok := ClosestStrike(nil, 100)
	assert.False(t, ok)
}

func TestClosestDate_FirstMinimalWins(t *testing.T) {
	target := model.NewDate(2024, time.May, 15)
	later := target.AddDays(3)
	earlier := target.AddDays(-3)

	got, ok := ClosestDate([]model.Date{later, earlier}, target)
	require.True(t, ok)
	assert.Equal(t, later, got, "tie keeps the first date in chain order")

	got, _ = ClosestDate([]model.Date{earlier, later}, target)
	assert.Equal(t, earlier, got)

	got, _ = ClosestDate([]model.Date{target.AddDays(10), target.AddDays(-2), later}, target)
	assert.Equal(t, target.AddDays(-2), got)

	_, ok = ClosestDate(nil, target)
	assert.False(t, ok)
}
