package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TaiexCache/internal/calculator"
	"TaiexCache/internal/freshness"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/merger"
	"TaiexCache/internal/model"
	"TaiexCache/internal/recorder"
	"TaiexCache/internal/store"
)

// refresh brings every instrument up to date as far as the policy requires.
// A successful bulk refresh on a weekday also pulls today's snapshot, and a
// failed one still lets a due snapshot through. All snapshot needs are served
// by one call. Must be called with mu held.
func (c *TimeSeriesCache) refresh(ctx context.Context, instruments []string, force bool) {
	now := c.now()
	today := c.policy.Today(now)

	var needSnapshot []string
	for _, inst := range instruments {
		entry := c.entryFor(ctx, inst)

		histStale, reason := c.policy.HistoricalStale(entry, now, force)
		if histStale && c.refreshHistorical(ctx, inst, entry, now, reason, force) {
			if model.IsTradingDay(today) && entry.Series.Len() > 0 {
				needSnapshot = append(needSnapshot, inst)
			}
			continue
		}
		// A session row alone is not a series; wait for history first.
		if entry.Series.Len() > 0 && c.policy.RealtimeStale(entry, now) {
			needSnapshot = append(needSnapshot, inst)
			continue
		}
		if !histStale {
			c.obs.CacheHit(inst)
		}
	}

	if len(needSnapshot) > 0 {
		c.refreshSnapshots(ctx, needSnapshot, now)
	}
}

// entryFor returns the in-memory entry, creating it from the store on first
// access. Store failures only cost the persisted rows.
func (c *TimeSeriesCache) entryFor(ctx context.Context, instrument string) *model.Entry {
	if e, ok := c.entries[instrument]; ok {
		return e
	}
	e := &model.Entry{Series: &model.Series{Instrument: instrument}}
	c.entries[instrument] = e

	rows, err := c.store.Load(ctx, instrument)
	switch {
	case err == nil:
		e.Series.Rows = rows
		logger.Debug("loaded persisted history", logger.Instrument(instrument), logger.Int("rows", len(rows)))
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		c.obs.CorruptCache(instrument)
		logger.Warn("persisted history corrupt, treating as absent", logger.Instrument(instrument), logger.ErrorField(err))
	default:
		logger.Warn("load persisted history failed", logger.Instrument(instrument), logger.ErrorField(err))
	}
	return e
}

// refreshHistorical fetches the missing range, merges it, recomputes every
// indicator and persists the historical slice. It reports success; on
// failure the entry keeps its rows and its LastHistoricalRefresh.
func (c *TimeSeriesCache) refreshHistorical(ctx context.Context, instrument string, entry *model.Entry, now time.Time, reason freshness.Reason, force bool) bool {
	source := c.history.Name()
	evt := &recorder.RefreshEvent{At: now, Instrument: instrument, Kind: recorder.KindBulk, Reason: string(reason), Source: source}
	defer c.record(evt)

	var fresh []model.Row
	start, end, ok := c.policy.FetchRange(entry, now, c.historyStart, force)
	if ok {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		t0 := time.Now()
		rows, err := c.history.FetchHistory(fctx, instrument, start, end)
		cancel()
		evt.Duration = time.Since(t0)
		c.obs.FetchObserved(source, recorder.KindBulk, evt.Duration)

		if err != nil {
			entry.LastHistoricalError = fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
			evt.Err = err.Error()
			evt.Rows = entry.Series.Len()
			c.obs.FetchFailed(source, recorder.KindBulk)
			logger.Warn("bulk fetch failed, serving cached rows",
				logger.Instrument(instrument), logger.String("source", source),
				logger.Day("start", start), logger.Day("end", end),
				logger.Int("cached_rows", entry.Series.Len()), logger.ErrorField(err))
			return false
		}
		fresh = rows
	}

	merged, stats := merger.MergeHistorical(entry.Series.Rows, fresh)
	if stats.Weekend > 0 || stats.MissingOHLC > 0 {
		logger.Warn("dropped bad rows during merge", logger.Instrument(instrument),
			logger.Int("weekend", stats.Weekend), logger.Int("missing_ohlc", stats.MissingOHLC))
	}
	entry.Series.Rows = calculator.RecomputeAll(merged)
	entry.LastHistoricalRefresh = now
	entry.LastHistoricalError = nil

	if err := c.store.Save(ctx, instrument, entry.Series.Rows); err != nil {
		logger.Warn("persist history failed", logger.Instrument(instrument), logger.String("store", c.store.Name()), logger.ErrorField(err))
	}

	evt.Rows = entry.Series.Len()
	evt.Dropped = stats.Weekend + stats.MissingOHLC
	c.obs.Refreshed(instrument, recorder.KindBulk, evt.Rows)
	logger.Info("historical refresh done", logger.Instrument(instrument), logger.String("reason", string(reason)),
		logger.Int("fetched", len(fresh)), logger.Int("rows", evt.Rows))
	return true
}

// refreshSnapshots pulls one snapshot per instrument and folds each into its
// session row. Snapshots dated other than today are not applied, so rows
// before today never change here.
func (c *TimeSeriesCache) refreshSnapshots(ctx context.Context, instruments []string, now time.Time) {
	source := c.snapshots.Name()
	today := c.policy.Today(now)

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	t0 := time.Now()
	snaps, err := c.snapshots.FetchSnapshots(fctx, instruments)
	cancel()
	elapsed := time.Since(t0)
	c.obs.FetchObserved(source, recorder.KindSnapshot, elapsed)

	if err != nil {
		c.obs.FetchFailed(source, recorder.KindSnapshot)
		for _, inst := range instruments {
			entry := c.entries[inst]
			entry.LastRealtimeError = fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
			c.record(&recorder.RefreshEvent{At: now, Instrument: inst, Kind: recorder.KindSnapshot, Source: source,
				Rows: entry.Series.Len(), Duration: elapsed, Err: err.Error()})
		}
		logger.Warn("snapshot fetch failed, serving cached rows", logger.Strings("instruments", instruments),
			logger.String("source", source), logger.ErrorField(err))
		return
	}

	seen := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		entry, ok := c.entries[snap.Instrument]
		if !ok || seen[snap.Instrument] {
			continue
		}
		seen[snap.Instrument] = true

		day := model.DateOf(snap.Timestamp, c.policy.Location)
		if day.Equal(today) {
			if rows, applied := merger.MergeSnapshot(entry.Series.Rows, snap, day); applied {
				entry.Series.Rows = calculator.RecomputeLatest(rows, day)
			}
		} else {
			logger.Debug("snapshot is not for today's session, skipped", logger.Instrument(snap.Instrument), logger.Day("session", day))
		}
		entry.LastRealtimeRefresh = now
		entry.LastRealtimeError = nil

		c.obs.Refreshed(snap.Instrument, recorder.KindSnapshot, entry.Series.Len())
		c.record(&recorder.RefreshEvent{At: now, Instrument: snap.Instrument, Kind: recorder.KindSnapshot, Source: source,
			Rows: entry.Series.Len(), Duration: elapsed})
	}

	for _, inst := range instruments {
		if !seen[inst] {
			logger.Warn("snapshot missing for instrument", logger.Instrument(inst), logger.String("source", source))
		}
	}
}

func (c *TimeSeriesCache) record(evt *recorder.RefreshEvent) {
	if err := c.rec.RecordRefresh(evt); err != nil {
		logger.Warn("record refresh event failed", logger.Instrument(evt.Instrument), logger.ErrorField(err))
	}
}
