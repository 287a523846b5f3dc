package collector

import (
	"sort"
	"time"

	"TaiexCache/internal/model"
)

// AggregateDaily folds intraday bars into one row per local calendar date:
// first open, highest high, lowest low, last close, summed amount.
func AggregateDaily(bars []model.Bar, loc *time.Location) []model.Row {
	if len(bars) == 0 {
		return nil
	}
	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var daily []model.Row
	var cur model.Row
	started := false

	for _, b := range sorted {
		d := model.DateOf(b.Time, loc)
		if !started || !d.Equal(cur.Date) {
			if started {
				daily = append(daily, cur)
			}
			cur = model.NewRow(d, b.Open, b.High, b.Low, b.Close, b.Amount)
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Amount += b.Amount
	}
	if started {
		daily = append(daily, cur)
	}
	return daily
}
