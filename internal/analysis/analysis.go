// Package analysis turns the latest rows of a series into the trend reading
// shown next to the index charts.
package analysis

import (
	"errors"
	"time"

	"TaiexCache/internal/model"
)

// ErrEmptySeries is returned when there is no row to analyze.
var ErrEmptySeries = errors.New("analysis: empty series")

// Result is the trend reading for the latest row.
type Result struct {
	Instrument string       `json:"instrument"`
	Date       time.Time    `json:"date"`
	Close      float64      `json:"close"`
	MAs        []MAPosition `json:"moving_averages"`
	Alignment  Alignment    `json:"alignment"`
	Conclusion string       `json:"conclusion"`
	MACD       *MACDState   `json:"macd,omitempty"`
	Stale      bool         `json:"stale"`
}

// Analyze reads the latest row of s (and the one before it for the MACD
// histogram trend). Undefined indicators are left out rather than guessed.
func Analyze(s *model.Series) (*Result, error) {
	last, ok := s.Last()
	if !ok {
		return nil, ErrEmptySeries
	}

	res := &Result{
		Instrument: s.Instrument,
		Date:       last.Date,
		Close:      last.Close,
		MAs:        maPositions(last),
		Stale:      s.Stale,
	}
	res.Alignment = alignmentOf(last)
	res.Conclusion = alignmentLabels[res.Alignment]

	var prev *model.Row
	if n := s.Len(); n > 1 {
		prev = &s.Rows[n-2]
	}
	res.MACD = macdState(last, prev)
	return res, nil
}
