// Package collector talks to the upstream market-data sources.
package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"TaiexCache/internal/model"
)

// HistoryFetcher is the slow bulk source of daily rows.
type HistoryFetcher interface {
	// FetchHistory returns daily rows for start..end inclusive, ascending.
	// Indicator fields are left undefined.
	FetchHistory(ctx context.Context, instrument string, start, end time.Time) ([]model.Row, error)
	Name() string
}

// SnapshotFetcher is the fast source of current-session readings.
type SnapshotFetcher interface {
	// FetchSnapshots returns one reading per instrument it knows about.
	// Unknown instruments are omitted rather than failing the call.
	FetchSnapshots(ctx context.Context, instruments []string) ([]model.Snapshot, error)
	Name() string
}

// DefaultTimeout bounds a single HTTP exchange with an upstream source.
const DefaultTimeout = 30 * time.Second

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: transport,
	}
}

// inRange keeps rows dated start..end inclusive.
func inRange(rows []model.Row, start, end time.Time) []model.Row {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}
