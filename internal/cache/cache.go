// Package cache serves per-instrument daily series, refreshing them from the
// bulk and snapshot sources only when the freshness policy says so.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"TaiexCache/internal/collector"
	"TaiexCache/internal/freshness"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/model"
	"TaiexCache/internal/recorder"
	"TaiexCache/internal/store"
)

var (
	// ErrNoData is returned when an instrument has no rows at all, typically
	// because the very first fetch failed.
	ErrNoData = errors.New("no data available")
	// ErrFetch wraps upstream failures recorded on an entry.
	ErrFetch = errors.New("fetch failed")
)

// DefaultFetchTimeout bounds each upstream call.
const DefaultFetchTimeout = 30 * time.Second

// Observer receives cache activity. *metrics.Metrics implements it.
type Observer interface {
	CacheHit(instrument string)
	Refreshed(instrument, kind string, rows int)
	FetchFailed(source, kind string)
	FetchObserved(source, kind string, d time.Duration)
	CorruptCache(instrument string)
	Cleared(instrument string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)                             {}
func (nopObserver) Refreshed(string, string, int)               {}
func (nopObserver) FetchFailed(string, string)                  {}
func (nopObserver) FetchObserved(string, string, time.Duration) {}
func (nopObserver) CorruptCache(string)                         {}
func (nopObserver) Cleared(string)                              {}

// Options wires a TimeSeriesCache. History, Snapshots and Policy are required.
type Options struct {
	History      collector.HistoryFetcher
	Snapshots    collector.SnapshotFetcher
	Store        store.Store
	Policy       *freshness.Policy
	Recorder     recorder.Recorder
	Observer     Observer
	HistoryStart time.Time
	FetchTimeout time.Duration
	Now          func() time.Time
}

// TimeSeriesCache owns every in-memory entry. A single mutex covers each
// whole decide-refresh-merge sequence, so fetches run under the lock.
type TimeSeriesCache struct {
	mu      sync.Mutex
	entries map[string]*model.Entry

	history      collector.HistoryFetcher
	snapshots    collector.SnapshotFetcher
	store        store.Store
	policy       *freshness.Policy
	rec          recorder.Recorder
	obs          Observer
	historyStart time.Time
	fetchTimeout time.Duration
	now          func() time.Time
}

// New validates opts and builds a cache.
func New(opts Options) (*TimeSeriesCache, error) {
	if opts.History == nil || opts.Snapshots == nil {
		return nil, fmt.Errorf("cache: history and snapshot fetchers are required")
	}
	if opts.Policy == nil {
		return nil, fmt.Errorf("cache: freshness policy is required")
	}
	c := &TimeSeriesCache{
		entries:      make(map[string]*model.Entry),
		history:      opts.History,
		snapshots:    opts.Snapshots,
		store:        opts.Store,
		policy:       opts.Policy,
		rec:          opts.Recorder,
		obs:          opts.Observer,
		historyStart: opts.HistoryStart,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
	}
	if c.store == nil {
		c.store = store.NoopStore{}
	}
	if c.rec == nil {
		c.rec = recorder.NewNoopRecorder()
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.historyStart.IsZero() {
		c.historyStart = time.Date(2024, 1, 1, 0, 0, 0, 0, c.policy.Location)
	}
	return c, nil
}

// Get returns a copy of the instrument's series, refreshing first when the
// policy asks for it. Fetch failures are logged and the cached rows served
// with Stale set; ErrNoData is returned only when there are no rows at all.
func (c *TimeSeriesCache) Get(ctx context.Context, instrument string, force bool) (*model.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refresh(ctx, []string{instrument}, force)
	s, err := c.copyOf(instrument)
	c.dropFailedEmpty(instrument)
	return s, err
}

// GetMany serves several instruments with at most one snapshot call. The
// map holds every instrument that has data; the error joins one ErrNoData
// per instrument that has none.
func (c *TimeSeriesCache) GetMany(ctx context.Context, instruments []string, force bool) (map[string]*model.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refresh(ctx, instruments, force)

	out := make(map[string]*model.Series, len(instruments))
	var errs []error
	for _, inst := range instruments {
		s, err := c.copyOf(inst)
		c.dropFailedEmpty(inst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[inst] = s
	}
	return out, errors.Join(errs...)
}

// Entry returns a copy of the in-memory entry, if any.
func (c *TimeSeriesCache) Entry(instrument string) (model.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[instrument]
	if !ok {
		return model.Entry{}, false
	}
	return e.Clone(), true
}

// Instruments lists the instruments held in memory, sorted.
func (c *TimeSeriesCache) Instruments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clear drops the in-memory entry and the persisted data for instrument.
func (c *TimeSeriesCache) Clear(ctx context.Context, instrument string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, instrument)
	c.obs.Cleared(instrument)
	if err := c.store.Clear(ctx, instrument); err != nil {
		return fmt.Errorf("clear %s: %w", instrument, err)
	}
	logger.Info("cache cleared", logger.Instrument(instrument))
	return nil
}

// ClearAll drops every entry and all persisted data.
func (c *TimeSeriesCache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for inst := range c.entries {
		c.obs.Cleared(inst)
	}
	c.entries = make(map[string]*model.Entry)
	if err := c.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	logger.Info("cache cleared", logger.String("scope", "all"))
	return nil
}

// dropFailedEmpty forgets an entry that still has no rows after a failed
// refresh, so it is neither listed nor kept from retrying. Must be called
// with mu held.
func (c *TimeSeriesCache) dropFailedEmpty(instrument string) {
	if e, ok := c.entries[instrument]; ok && e.Series.Len() == 0 && e.Err() != nil {
		delete(c.entries, instrument)
	}
}

// copyOf must be called with mu held.
func (c *TimeSeriesCache) copyOf(instrument string) (*model.Series, error) {
	e := c.entries[instrument]
	if e == nil || e.Series.Len() == 0 {
		var cause error
		if e != nil {
			cause = e.Err()
		}
		if cause != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrNoData, instrument, cause)
		}
		return nil, fmt.Errorf("%w for %s", ErrNoData, instrument)
	}
	s := e.Series.Clone()
	s.Stale = e.Err() != nil
	return s, nil
}
