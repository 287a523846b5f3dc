package calculator

import (
	"time"

	"TaiexCache/internal/model"

	"github.com/moznion/go-optional"
)

// LatestWindow bounds the history used when only the newest row is recomputed.
// A 50-row MACD differs slightly from a full-history one; that is accepted.
const LatestWindow = 50

// RecomputeAll returns a copy of rows with MACD and every moving average
// recomputed from the close column. Moving averages are rounded to 2 decimals.
func RecomputeAll(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	if len(out) == 0 {
		return out
	}

	closes := model.Closes(out)
	macd := CalculateMACD(closes, FastPeriod, SlowPeriod, SignalPeriod)
	for i := range out {
		out[i].DIF = macd.DIF[i]
		out[i].MACD = macd.Signal[i]
		out[i].MACDHist = macd.Hist[i]
	}

	for _, w := range MAWindows {
		col := MovingAverages(closes, w)
		for i := range out {
			if col[i].IsSome() {
				out[i].SetMA(w, optional.Some(round2(col[i].Unwrap())))
			} else {
				out[i].SetMA(w, col[i])
			}
		}
	}
	return out
}

// RecomputeLatest returns a copy of rows where only the row dated target has
// its indicators refreshed. MACD uses at most LatestWindow rows ending at
// target and is left untouched when that window is too short; moving averages
// use the trailing closes ending at target and become None when short.
// Rows are returned unchanged when target is not present.
func RecomputeLatest(rows []model.Row, target time.Time) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	idx := model.IndexOfDate(out, target)
	if idx < 0 {
		return out
	}

	closes := model.Closes(out[:idx+1])

	window := closes
	if len(window) > LatestWindow {
		window = window[len(window)-LatestWindow:]
	}
	macd := CalculateMACD(window, FastPeriod, SlowPeriod, SignalPeriod)
	last := len(window) - 1
	if macd.DIF[last].IsSome() {
		out[idx].DIF = macd.DIF[last]
		out[idx].MACD = macd.Signal[last]
		out[idx].MACDHist = macd.Hist[last]
	}

	for _, w := range MAWindows {
		if ma, err := CalculateSMA(closes, w); err == nil {
			out[idx].SetMA(w, optional.Some(ma))
		} else {
			out[idx].SetMA(w, optional.None[float64]())
		}
	}
	return out
}
