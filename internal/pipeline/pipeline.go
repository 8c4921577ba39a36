package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/taylorsk/volatility-analysis/internal/calculator"
	"github.com/taylorsk/volatility-analysis/internal/collector"
	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/recorder"
	"github.com/taylorsk/volatility-analysis/internal/render"
	"github.com/taylorsk/volatility-analysis/internal/saver"
	"github.com/taylorsk/volatility-analysis/internal/selector"
	"github.com/taylorsk/volatility-analysis/internal/timeseries"
)

// ErrBootstrap means the price history could not be loaded, so nothing can be analyzed.
var ErrBootstrap = errors.New("bootstrap price history")

// Options are the analysis parameters of a run.
type Options struct {
	HVWindowDays int
	HorizonDays  int
	Selection    selector.Config
}

// Pipeline runs one complete IV vs HV accuracy analysis and hands the result
// to the configured sinks. Nil sinks are skipped.
type Pipeline struct {
	Collector  *collector.Collector
	Options    Options
	Renderer   render.Renderer
	Saver      saver.SeriesSaver
	ExportPath string
	Recorder   recorder.Recorder

	now func() time.Time
}

// New creates a Pipeline with a NoopRecorder.
func New(col *collector.Collector, opts Options) *Pipeline {
	return &Pipeline{
		Collector: col,
		Options:   opts,
		Recorder:  recorder.NewNoopRecorder(),
		now:       time.Now,
	}
}

// Run loads prices, selects contracts, scores both predictors and publishes the report.
// Sink failures are logged; only a failed bootstrap is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	store, err := p.Collector.CollectPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	sel := selector.New(p.Collector.ChainSource(), p.Options.Selection)
	rep := p.Analyze(ctx, store, sel, selector.NewState())
	rep.Symbol = p.Collector.Symbol

	p.publish(rep)
	return rep, nil
}

// Analyze runs the analytics over a loaded store. state carries the request
// budget and throttle; callers may reuse it to continue a partial run.
func (p *Pipeline) Analyze(ctx context.Context, store *timeseries.Store, sel *selector.Selector, state *selector.State) *model.Report {
	horizon := p.Options.HorizonDays

	hv := calculator.HistoricalVolatility(store.Points(), p.Options.HVWindowDays)
	hvFull := calculator.HVAccuracy(store, hv, horizon)
	log.Printf("[INFO] HV estimates defined at %d/%d dates, %d HV samples", hv.Defined(), len(hv), len(hvFull))

	contracts := sel.Select(ctx, store, state)
	if state.Exhausted(sel.Config.MaxRequests) {
		log.Printf("[INFO] max options requests (%d) reached", sel.Config.MaxRequests)
	}
	log.Printf("[INFO] total options requests made: %d, contracts selected: %d", state.RequestsMade, len(contracts))

	iv := calculator.IVAccuracy(contracts, store, horizon)
	hvAtIV := calculator.RestrictToDates(hvFull, iv)

	rep := &model.Report{
		RunID:        uuid.NewString(),
		PricePoints:  store.Len(),
		RequestsMade: state.RequestsMade,
		MaxRequests:  sel.Config.MaxRequests,
		Contracts:    contracts,
		IV:           iv,
		HVFull:       hvFull,
		HV:           hvAtIV,
		GeneratedAt:  p.clock(),
	}
	if store.Len() > 0 {
		rep.From, rep.To = store.First().Date, store.Latest().Date
	}
	rep.IVMAE = stat(calculator.MAE(iv))
	rep.HVMAE = stat(calculator.MAE(hvAtIV))
	rep.Correlation = stat(calculator.Correlation(iv, hvAtIV))
	return rep
}

func (p *Pipeline) publish(rep *model.Report) {
	ivSeries := model.AccuracySeries{Name: "IV", Samples: rep.IV}
	hvSeries := model.AccuracySeries{Name: "HV", Samples: rep.HV}

	if p.Renderer != nil {
		if err := p.Renderer.Render(ivSeries, hvSeries); err != nil {
			log.Printf("[ERROR] render chart: %v", err)
		}
	}
	if p.Saver != nil && p.ExportPath != "" {
		full := model.AccuracySeries{Name: "HV_FULL", Samples: rep.HVFull}
		if path, err := saver.Export(p.Saver, p.ExportPath, ivSeries, hvSeries, full); err != nil {
			log.Printf("[ERROR] export series: %v", err)
		} else {
			log.Printf("[INFO] accuracy series exported to %s", path)
		}
	}
	if p.Recorder != nil {
		if err := p.Recorder.RecordRun(rep); err != nil {
			log.Printf("[ERROR] record run: %v", err)
		}
	}
}

func (p *Pipeline) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func stat(v float64, ok bool) model.Stat {
	return model.Stat{Value: v, Defined: ok}
}
