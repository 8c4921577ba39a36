package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahoo_PriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^GSPC", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"chart": {"result": [{
			"timestamp": [1704205800, 1704292200, 1704378600],
			"indicators": {"quote": [{"close": [4742.83, null, 4704.81]}]}
		}], "error": null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	pts, err := f.FetchPriceHistory(context.Background(), "SPX")
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "2024-01-02", pts[0].Date.String())
	assert.Equal(t, 4742.83, pts[0].Close)
	assert.Equal(t, "2024-01-04", pts[1].Date.String())
}

func TestYahoo_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchPriceHistory(context.Background(), "NOPE")
	assert.ErrorContains(t, err, "No data found")
}
