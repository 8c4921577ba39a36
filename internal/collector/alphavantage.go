package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

const defaultAlphaVantageURL = "https://www.alphavantage.co"

var (
	// ErrAPI is returned when the API answers with an "Error Message" body.
	ErrAPI = errors.New("alpha vantage api error")
	// ErrAPILimit is returned for "Note"/"Information" bodies, which the API
	// uses for rate limit and plan notices.
	ErrAPILimit = errors.New("alpha vantage api limit")
)

// AlphaVantageFetcher implements PriceFetcher and ChainFetcher against the
// Alpha Vantage query API.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewAlphaVantageFetcher creates a fetcher with optional proxy support.
// requestsPerMinute <= 0 disables client-side throttling.
func NewAlphaVantageFetcher(baseURL, apiKey, proxyURL string, requestsPerMinute int) *AlphaVantageFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = defaultAlphaVantageURL
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &AlphaVantageFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		Limiter: rate.NewLimiter(limit, 1),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

// avNumber holds a raw numeric field. Values are parsed per record with Float so
// one malformed field only drops its own record.
type avNumber []byte

func (n *avNumber) UnmarshalJSON(data []byte) error {
	*n = append((*n)[:0], data...)
	return nil
}

// Float parses the API's stringly typed numbers. Missing, empty, "none", "nan"
// and "." parse as 0.
func (n avNumber) Float() (float64, error) {
	if len(n) == 0 || string(n) == "null" {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(n, &s); err != nil {
		var f float64
		if err := json.Unmarshal(n, &f); err != nil {
			return 0, fmt.Errorf("cannot parse number: %s", string(n))
		}
		return f, nil
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.EqualFold(s, "none") || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}

type avMessages struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (m avMessages) err() error {
	switch {
	case m.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrAPI, m.ErrorMessage)
	case m.Note != "":
		return fmt.Errorf("%w: %s", ErrAPILimit, m.Note)
	case m.Information != "":
		return fmt.Errorf("%w: %s", ErrAPILimit, m.Information)
	}
	return nil
}

type avDailyBar struct {
	Open   avNumber `json:"1. open"`
	High   avNumber `json:"2. high"`
	Low    avNumber `json:"3. low"`
	Close  avNumber `json:"4. close"`
	Volume avNumber `json:"5. volume"`
}

type avDailyResponse struct {
	avMessages
	MetaData   map[string]string     `json:"Meta Data"`
	TimeSeries map[string]avDailyBar `json:"Time Series (Daily)"`
}

type avOptionEntry struct {
	ContractID        string   `json:"contractID"`
	Symbol            string   `json:"symbol"`
	Expiration        string   `json:"expiration"`
	Strike            avNumber `json:"strike"`
	Type              string   `json:"type"`
	Last              avNumber `json:"last"`
	Mark              avNumber `json:"mark"`
	Bid               avNumber `json:"bid"`
	Ask               avNumber `json:"ask"`
	Volume            avNumber `json:"volume"`
	OpenInterest      avNumber `json:"open_interest"`
	Date              string   `json:"date"`
	ImpliedVolatility avNumber `json:"implied_volatility"`
}

type avOptionsResponse struct {
	avMessages
	Endpoint string          `json:"endpoint"`
	Message  string          `json:"message"`
	Data     []avOptionEntry `json:"data"`
}

// FetchPriceHistory returns the full daily close history for symbol.
// Entries with an unparsable date or close are skipped.
func (f *AlphaVantageFetcher) FetchPriceHistory(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")

	var resp avDailyResponse
	if err := f.query(ctx, q, &resp); err != nil {
		return nil, fmt.Errorf("fetch price history: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("fetch price history: %w", err)
	}

	points := make([]model.PricePoint, 0, len(resp.TimeSeries))
	for ds, bar := range resp.TimeSeries {
		d, err := model.ParseDate(ds)
		if err != nil {
			log.Printf("[WARN] alphavantage: skipping price entry: %v", err)
			continue
		}
		c, err := bar.Close.Float()
		if err != nil {
			log.Printf("[WARN] alphavantage: skipping price entry %s: close: %v", ds, err)
			continue
		}
		points = append(points, model.PricePoint{Date: d, Close: c})
	}
	return points, nil
}

// FetchOptionChain returns the historical option chain for symbol on date.
// Quotes with an unknown type or unparsable dates or numbers are skipped, as are quotes
// without a positive implied volatility and last price.
func (f *AlphaVantageFetcher) FetchOptionChain(ctx context.Context, symbol string, date model.Date) ([]model.OptionQuote, error) {
	q := url.Values{}
	q.Set("function", "HISTORICAL_OPTIONS")
	q.Set("symbol", symbol)
	q.Set("date", date.String())

	var resp avOptionsResponse
	if err := f.query(ctx, q, &resp); err != nil {
		return nil, fmt.Errorf("fetch options %s: %w", date, err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("fetch options %s: %w", date, err)
	}
	if len(resp.Data) == 0 {
		log.Printf("[INFO] alphavantage: no options data for %s on %s: %s", symbol, date, resp.Message)
		return nil, nil
	}
	return convertOptions(resp.Data), nil
}

func convertOptions(entries []avOptionEntry) []model.OptionQuote {
	quotes := make([]model.OptionQuote, 0, len(entries))
	for _, e := range entries {
		kind, err := model.ParseOptionKind(e.Type)
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s: %v", e.ContractID, err)
			continue
		}
		exp, err := model.ParseDate(e.Expiration)
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s expiration: %v", e.ContractID, err)
			continue
		}
		obs, err := model.ParseDate(e.Date)
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s date: %v", e.ContractID, err)
			continue
		}
		strike, err := e.Strike.Float()
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s strike: %v", e.ContractID, err)
			continue
		}
		last, err := e.Last.Float()
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s last: %v", e.ContractID, err)
			continue
		}
		iv, err := e.ImpliedVolatility.Float()
		if err != nil {
			log.Printf("[WARN] alphavantage: contract %s implied volatility: %v", e.ContractID, err)
			continue
		}
		if iv <= 0 || last <= 0 {
			continue
		}
		quotes = append(quotes, model.OptionQuote{
			ContractID:        e.ContractID,
			Symbol:            e.Symbol,
			Expiration:        exp,
			Strike:            strike,
			Kind:              kind,
			ObservationDate:   obs,
			LastPrice:         last,
			ImpliedVolatility: iv,
		})
	}
	return quotes
}

func (f *AlphaVantageFetcher) query(ctx context.Context, q url.Values, out interface{}) error {
	if err := f.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	q.Set("apikey", f.APIKey)
	endpoint := f.BaseURL + "/query?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", q.Get("function"), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body, 500))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w (body: %s)", q.Get("function"), err, truncate(body, 500))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
