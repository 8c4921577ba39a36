package timeseries

import (
	"math"
	"sort"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// Store holds a strictly ascending, date-unique sequence of daily closes.
type Store struct {
	points []model.PricePoint
	index  map[model.Date]int
}

// NewStore copies points, drops non-finite or negative closes, sorts by date and
// keeps the last occurrence of each date.
func NewStore(points []model.PricePoint) *Store {
	byDate := make(map[model.Date]float64, len(points))
	for _, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close < 0 {
			continue
		}
		byDate[p.Date] = p.Close
	}

	sorted := make([]model.PricePoint, 0, len(byDate))
	for d, c := range byDate {
		sorted = append(sorted, model.PricePoint{Date: d, Close: c})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	s := &Store{}
	s.reset(sorted)
	return s
}

func (s *Store) reset(points []model.PricePoint) {
	s.points = points
	s.index = make(map[model.Date]int, len(points))
	for i, p := range points {
		s.index[p.Date] = i
	}
}

// RetainTrailing keeps only points within days calendar days of the latest date
// (inclusive on both ends). Returns the number of points dropped.
func (s *Store) RetainTrailing(days int) int {
	if len(s.points) == 0 || days < 0 {
		return 0
	}
	cutoff := s.Latest().Date.AddDays(-days)
	start := sort.Search(len(s.points), func(i int) bool { return s.points[i].Date >= cutoff })
	if start == 0 {
		return 0
	}
	kept := make([]model.PricePoint, len(s.points)-start)
	copy(kept, s.points[start:])
	s.reset(kept)
	return start
}

// Len returns the number of points.
func (s *Store) Len() int { return len(s.points) }

// Points returns the ordered points. Callers must not modify the slice.
func (s *Store) Points() []model.PricePoint { return s.points }

// At returns the i-th point.
func (s *Store) At(i int) model.PricePoint { return s.points[i] }

// Index returns the position of d in the series.
func (s *Store) Index(d model.Date) (int, bool) {
	i, ok := s.index[d]
	return i, ok
}

// Has reports whether d is a known price date.
func (s *Store) Has(d model.Date) bool {
	_, ok := s.index[d]
	return ok
}

// Close returns the close on d.
func (s *Store) Close(d model.Date) (float64, bool) {
	i, ok := s.index[d]
	if !ok {
		return 0, false
	}
	return s.points[i].Close, true
}

// First returns the earliest point. Panics on an empty store.
func (s *Store) First() model.PricePoint { return s.points[0] }

// Latest returns the most recent point. Panics on an empty store.
func (s *Store) Latest() model.PricePoint { return s.points[len(s.points)-1] }

// Closes extracts the close prices in order.
func (s *Store) Closes() []float64 {
	closes := make([]float64, len(s.points))
	for i, p := range s.points {
		closes[i] = p.Close
	}
	return closes
}
