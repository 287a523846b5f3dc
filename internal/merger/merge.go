// Package merger combines freshly fetched rows with cached history and folds
// real-time snapshots into the current session's row.
package merger

import (
	"sort"
	"time"

	"TaiexCache/internal/model"
)

// Stats describes what MergeHistorical discarded.
type Stats struct {
	Duplicates  int
	Weekend     int
	MissingOHLC int
}

// Dropped is the total number of input rows not present in the output.
func (s Stats) Dropped() int {
	return s.Duplicates + s.Weekend + s.MissingOHLC
}

type dateKey struct {
	y int
	m time.Month
	d int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

// MergeHistorical concatenates old and fresh, keeps the fresh row on a date
// conflict, drops weekend dates and rows missing any OHLC price, and returns
// the result sorted ascending by date. Inputs are not modified.
func MergeHistorical(old, fresh []model.Row) ([]model.Row, Stats) {
	var st Stats
	byDate := make(map[dateKey]model.Row, len(old)+len(fresh))

	add := func(r model.Row) {
		if r.Date.IsZero() || !r.HasOHLC() {
			st.MissingOHLC++
			return
		}
		if !model.IsTradingDay(r.Date) {
			st.Weekend++
			return
		}
		k := keyOf(r.Date)
		if _, ok := byDate[k]; ok {
			st.Duplicates++
		}
		byDate[k] = r.Clone()
	}
	for _, r := range old {
		add(r)
	}
	for _, r := range fresh {
		add(r)
	}

	merged := make([]model.Row, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, st
}

// MergeSnapshot folds snap into the row dated day. An existing row takes the
// snapshot's open, close and amount while high and low only widen. A missing
// row is inserted with undefined indicators. Weekend days and snapshots
// without usable prices leave rows unchanged. The returned bool reports
// whether anything was applied.
func MergeSnapshot(rows []model.Row, snap model.Snapshot, day time.Time) ([]model.Row, bool) {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}

	fresh := model.NewRow(day, snap.Open, snap.High, snap.Low, snap.Close, snap.TotalAmount)
	if !model.IsTradingDay(day) || !fresh.HasOHLC() {
		return out, false
	}

	if idx := model.IndexOfDate(out, day); idx >= 0 {
		r := &out[idx]
		r.Open = snap.Open
		r.Close = snap.Close
		r.Amount = snap.TotalAmount
		if snap.High > r.High {
			r.High = snap.High
		}
		if snap.Low < r.Low {
			r.Low = snap.Low
		}
		return out, true
	}

	pos := sort.Search(len(out), func(i int) bool { return out[i].Date.After(day) })
	out = append(out, model.Row{})
	copy(out[pos+1:], out[pos:])
	out[pos] = fresh
	return out, true
}
