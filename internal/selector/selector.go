package selector

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/taylorsk/volatility-analysis/internal/model"
	"github.com/taylorsk/volatility-analysis/internal/timeseries"
)

// ChainSource returns the option chain observed on an anchor date.
// An empty chain is a valid "no data" answer.
type ChainSource interface {
	FetchChain(ctx context.Context, anchor model.Date) ([]model.OptionQuote, error)
}

// ChainFunc adapts a function to ChainSource.
type ChainFunc func(ctx context.Context, anchor model.Date) ([]model.OptionQuote, error)

func (f ChainFunc) FetchChain(ctx context.Context, anchor model.Date) ([]model.OptionQuote, error) {
	return f(ctx, anchor)
}

// Config bounds the selection run.
type Config struct {
	MaxRequests          int // total chain requests allowed
	MinFetchIntervalDays int // calendar days between successful anchors
	TargetHorizonDays    int // calendar days from anchor to the wanted expiration
}

// State is carried across Select calls: the request budget and throttle are
// enforced against it, not against per-call locals.
type State struct {
	RequestsMade int
	Processed    map[model.Date]struct{}
	LastFetch    model.Date
	HasLastFetch bool
}

// NewState returns an empty selection state.
func NewState() *State {
	return &State{Processed: make(map[model.Date]struct{})}
}

// Exhausted reports whether the request budget is used up.
func (s *State) Exhausted(max int) bool {
	return s.RequestsMade >= max
}

func (s *State) markProcessed(anchor model.Date) {
	if s.Processed == nil {
		s.Processed = make(map[model.Date]struct{})
	}
	s.Processed[anchor] = struct{}{}
	s.LastFetch = anchor
	s.HasLastFetch = true
}

// Selector picks, per anchor date, the option contract nearest to a target
// expiration and to the anchor close.
type Selector struct {
	Source ChainSource
	Config Config
}

// New creates a Selector.
func New(source ChainSource, cfg Config) *Selector {
	return &Selector{Source: source, Config: cfg}
}

// Select walks the price series in order and returns the contracts selected for
// each qualifying anchor. Chain requests are issued one at a time; failures on
// one anchor are logged and skipped. The loop stops when the budget in state is
// spent or ctx is done.
func (s *Selector) Select(ctx context.Context, store *timeseries.Store, state *State) []model.SelectedContract {
	var selected []model.SelectedContract

	for _, p := range store.Points() {
		if state.Exhausted(s.Config.MaxRequests) {
			log.Printf("[INFO] max options requests (%d) reached, stopping", s.Config.MaxRequests)
			break
		}
		if err := ctx.Err(); err != nil {
			log.Printf("[WARN] contract selection cancelled: %v", err)
			break
		}

		anchor := p.Date
		if _, done := state.Processed[anchor]; done {
			log.Printf("[INFO] skipping %s: options for this date already processed", anchor)
			continue
		}
		if state.HasLastFetch && anchor.DaysSince(state.LastFetch) < s.Config.MinFetchIntervalDays {
			log.Printf("[INFO] skipping %s: less than %d days since last options fetch", anchor, s.Config.MinFetchIntervalDays)
			continue
		}

		c, err := s.selectOne(ctx, store, state, p)
		if err != nil {
			log.Printf("[WARN] skipping %s: %v", anchor, err)
			continue
		}
		selected = append(selected, c)
		state.markProcessed(anchor)
		log.Printf("[INFO] selected %s (strike %.2f, exp %s, iv %.4f) for %s, total %d",
			c.ContractID, c.Strike, c.Expiration, c.ImpliedVolatility, anchor, len(selected))
	}
	return selected
}

// selectOne fetches the chain for one anchor and picks the nearest contract.
// The request counts against the budget whatever the outcome.
func (s *Selector) selectOne(ctx context.Context, store *timeseries.Store, state *State, anchor model.PricePoint) (model.SelectedContract, error) {
	target := anchor.Date.AddDays(s.Config.TargetHorizonDays)

	log.Printf("[INFO] fetching options for %s (request %d/%d)", anchor.Date, state.RequestsMade+1, s.Config.MaxRequests)
	chain, err := s.Source.FetchChain(ctx, anchor.Date)
	state.RequestsMade++
	if err != nil {
		return model.SelectedContract{}, fmt.Errorf("fetch options: %w", err)
	}
	if len(chain) == 0 {
		return model.SelectedContract{}, fmt.Errorf("no options data for this date")
	}

	expiration, ok := ClosestDate(distinctExpirations(chain), target)
	if !ok {
		return model.SelectedContract{}, fmt.Errorf("no expiration near target %s", target)
	}
	if !store.Has(expiration) {
		return model.SelectedContract{}, fmt.Errorf("no price data on expiry %s, realized move unavailable", expiration)
	}

	atExpiry := make([]model.OptionQuote, 0, len(chain))
	for _, q := range chain {
		if q.Expiration == expiration {
			atExpiry = append(atExpiry, q)
		}
	}

	strike, ok := ClosestStrike(distinctStrikes(atExpiry), anchor.Close)
	if !ok {
		return model.SelectedContract{}, fmt.Errorf("no strike near close %.2f at expiry %s", anchor.Close, expiration)
	}

	for _, q := range atExpiry {
		if q.Strike == strike {
			return q.Select(anchor.Date), nil
		}
	}
	return model.SelectedContract{}, fmt.Errorf("no contract with strike %.2f expiring %s", strike, expiration)
}

// distinctExpirations lists expirations in first-seen chain order.
func distinctExpirations(chain []model.OptionQuote) []model.Date {
	seen := make(map[model.Date]struct{})
	var out []model.Date
	for _, q := range chain {
		if _, ok := seen[q.Expiration]; ok {
			continue
		}
		seen[q.Expiration] = struct{}{}
		out = append(out, q.Expiration)
	}
	return out
}

// distinctStrikes returns the sorted, deduplicated strikes.
func distinctStrikes(quotes []model.OptionQuote) []float64 {
	strikes := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		strikes = append(strikes, q.Strike)
	}
	sort.Float64s(strikes)
	out := strikes[:0]
	for _, s := range strikes {
		if len(out) == 0 || s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
