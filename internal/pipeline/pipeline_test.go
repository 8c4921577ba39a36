package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylorsk/volatility-analysis/internal/collector"
	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/recorder"
	"github.com/taylorsk/volatility-analysis/internal/saver"
	"github.com/taylorsk/volatility-analysis/internal/selector"
)

var d0 = model.NewDate(2024, time.January, 1)

func dailyPrices(n int) []model.PricePoint {
	points := make([]model.PricePoint, n)
	for i := range points {
		points[i] = model.PricePoint{Date: d0.AddDays(i), Close: 100 + 3*math.Sin(float64(i)/3)}
	}
	points[0].Close = 100
	points[1].Close = 101
	points[2].Close = 99
	return points
}

func options(maxRequests int) Options {
	return Options{
		HVWindowDays: 30,
		HorizonDays:  30,
		Selection: selector.Config{
			MaxRequests:          maxRequests,
			MinFetchIntervalDays: 14,
			TargetHorizonDays:    30,
		},
	}
}

type captureRenderer struct {
	iv, hv model.AccuracySeries
	calls  int
}

func (c *captureRenderer) Render(iv, hv model.AccuracySeries) error {
	c.iv, c.hv = iv, hv
	c.calls++
	return nil
}

func TestPipeline_SingleContract(t *testing.T) {
	prices := dailyPrices(70)
	quote := model.OptionQuote{
		ContractID: "SPY240131C00100000", Symbol: "SPY", Expiration: d0.AddDays(30),
		Strike: 100, Kind: model.Call, ObservationDate: d0, LastPrice: 2.5, ImpliedVolatility: 0.2,
	}
	mock := &collector.MockFetcher{
		Prices: prices,
		Chains: map[model.Date][]model.OptionQuote{d0: {quote}},
	}
	col := collector.NewCollector(mock, mock, "SPY", 365)
	p := New(col, options(1))
	r := &captureRenderer{}
	p.Renderer = r

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SPY", rep.Symbol)
	assert.Equal(t, 1, rep.RequestsMade)
	assert.Equal(t, []model.Date{d0}, mock.ChainCalls)
	require.Len(t, rep.Contracts, 1)
	require.Len(t, rep.IV, 1)

	want := math.Abs(prices[30].Close-100) - 100*0.2*math.Sqrt(30.0/252)
	assert.Equal(t, d0, rep.IV[0].Date)
	assert.InDelta(t, want, rep.IV[0].Error, 1e-12)
	assert.True(t, rep.IVMAE.Defined)
	assert.InDelta(t, math.Abs(want), rep.IVMAE.Value, 1e-12)

	// HV is first defined at index 30, after the only IV anchor.
	assert.NotEmpty(t, rep.HVFull)
	assert.Empty(t, rep.HV)
	assert.False(t, rep.HVMAE.Defined)
	assert.False(t, rep.Correlation.Defined)

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "IV", r.iv.Name)
	assert.Equal(t, rep.IV, r.iv.Samples)
	assert.NotEmpty(t, rep.RunID)
}

func TestPipeline_HVRestrictedToIVDates(t *testing.T) {
	mock := &collector.MockFetcher{Prices: dailyPrices(150)}
	col := collector.NewCollector(mock, mock, "SPY", 365)
	p := New(col, options(24))

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, rep.RequestsMade, 24)
	ivDates := make(map[model.Date]bool)
	for _, s := range rep.IV {
		ivDates[s.Date] = true
	}
	for _, s := range rep.HV {
		assert.True(t, ivDates[s.Date], "HV sample %s has no IV counterpart", s.Date)
	}
	assert.GreaterOrEqual(t, len(rep.HVFull), len(rep.HV))
	assert.NotEmpty(t, rep.HV)
}

func TestPipeline_BootstrapFailure(t *testing.T) {
	mock := &collector.MockFetcher{PriceErr: errors.New("boom")}
	p := New(collector.NewCollector(mock, mock, "SPY", 365), options(24))

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBootstrap)
	assert.Empty(t, mock.ChainCalls)

	empty := &collector.MockFetcher{Prices: []model.PricePoint{}}
	_, err = New(collector.NewCollector(empty, empty, "SPY", 365), options(24)).Run(context.Background())
	assert.ErrorIs(t, err, ErrBootstrap)
	assert.ErrorIs(t, err, collector.ErrNoData)
}

func TestPipeline_Sinks(t *testing.T) {
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer rec.Close()

	mock := &collector.MockFetcher{Prices: dailyPrices(120)}
	p := New(collector.NewCollector(mock, mock, "SPY", 365), options(24))
	p.Recorder = rec
	p.Saver = saver.NewSeriesSaver("json")
	p.ExportPath = filepath.Join(dir, "accuracy")

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	stored, err := rec.LoadSamples(rep.RunID, recorder.KindIV)
	require.NoError(t, err)
	assert.Len(t, stored, len(rep.IV))
	assert.FileExists(t, filepath.Join(dir, "accuracy.json"))
}

func TestAnalyze_StateCarriesBudget(t *testing.T) {
	mock := &collector.MockFetcher{Prices: dailyPrices(150)}
	col := collector.NewCollector(mock, mock, "SPY", 365)
	store, err := col.CollectPrices(context.Background())
	require.NoError(t, err)

	p := New(col, options(2))
	sel := selector.New(col.ChainSource(), p.Options.Selection)
	state := selector.NewState()

	first := p.Analyze(context.Background(), store, sel, state)
	assert.Equal(t, 2, first.RequestsMade)
	second := p.Analyze(context.Background(), store, sel, state)
	assert.Equal(t, 2, second.RequestsMade)
	assert.Empty(t, second.Contracts)
	assert.Len(t, mock.ChainCalls, 2)
}
