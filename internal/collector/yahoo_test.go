package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooFetcher_FetchHistory(t *testing.T) {
	d1 := time.Date(2024, 6, 3, 9, 0, 0, 0, taipei).Unix()
	d2 := time.Date(2024, 6, 4, 9, 0, 0, 0, taipei).Unix()
	d3 := time.Date(2024, 6, 5, 9, 0, 0, 0, taipei).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/^TWII"), r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[` +
			itoa(d1) + `,` + itoa(d2) + `,` + itoa(d3) + `],"indicators":{"quote":[{` +
			`"open":[100,null,102],"high":[101,null,103],"low":[99,null,101],"close":[100.5,null,102.5],"volume":[5000,null,6000]}]}}]}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", taipei)
	f.BaseURL = srv.URL
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, taipei)
	rows, err := f.FetchHistory(context.Background(), "TSE", start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100.5, rows[0].Close)
	assert.Equal(t, 5, rows[1].Date.Day())
	assert.Equal(t, 6000.0, rows[1].Amount)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", taipei)
	f.BaseURL = srv.URL
	_, err := f.FetchSnapshots(context.Background(), []string{"TSE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
