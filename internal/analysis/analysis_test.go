package analysis

import (
	"testing"
	"time"

	"TaiexCache/internal/calculator"
	"TaiexCache/internal/model"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowWithMAs(close, ma5, ma20, ma60 float64) model.Row {
	r := model.NewRow(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), close, close, close, close, 1)
	r.MA5 = optional.Some(ma5)
	r.MA20 = optional.Some(ma20)
	r.MA60 = optional.Some(ma60)
	return r
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		name            string
		ma5, ma20, ma60 float64
		want            Alignment
	}{
		{"bull", 110, 105, 100, AlignBull},
		{"bull pullback", 103, 105, 100, AlignBullPullback},
		{"bear bounce", 97, 95, 100, AlignBearBounce},
		{"bear", 90, 95, 100, AlignBear},
		{"tangled", 100, 100, 100, AlignTangled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, alignmentOf(rowWithMAs(100, tt.ma5, tt.ma20, tt.ma60)))
		})
	}

	r := rowWithMAs(100, 1, 2, 3)
	r.MA60 = optional.None[float64]()
	assert.Equal(t, AlignUnknown, alignmentOf(r))
}

func TestMAPositions_SkipsUndefined(t *testing.T) {
	r := rowWithMAs(100, 99, 101, 100)
	pos := maPositions(r)
	require.Len(t, pos, 3)
	assert.True(t, pos[0].Above)
	assert.Equal(t, 5, pos[0].Window)
	assert.Contains(t, pos[0].Label, "站上5日均線")
	assert.False(t, pos[1].Above)
	assert.Contains(t, pos[1].Label, "跌破月均線")
	assert.False(t, pos[2].Above, "equal is not above")
}

func TestHistTrend(t *testing.T) {
	tests := []struct {
		name       string
		hist, prev float64
		want       string
	}{
		{"red growing", 2, 1, TrendGrowing},
		{"red shrinking", 1, 2, TrendShrinking},
		{"green to red", 1, -1, TrendFlipped},
		{"green growing", -2, -1, TrendGrowing},
		{"green shrinking", -1, -2, TrendShrinking},
		{"red to green", -1, 1, TrendFlipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, histTrend(tt.hist, tt.prev))
		})
	}
}

func TestAnalyze_Series(t *testing.T) {
	closes := make([]float64, 130)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rows := make([]model.Row, len(closes))
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		for !model.IsTradingDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		rows[i] = model.NewRow(d, c, c+1, c-1, c, 1e11)
		d = d.AddDate(0, 0, 1)
	}
	s := &model.Series{Instrument: "TSE", Rows: calculator.RecomputeAll(rows), Stale: true}

	res, err := Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, "TSE", res.Instrument)
	assert.True(t, res.Stale)
	assert.Equal(t, AlignBull, res.Alignment)
	assert.Contains(t, res.Conclusion, "多頭排列")
	require.Len(t, res.MAs, 4)
	for _, p := range res.MAs {
		assert.True(t, p.Above)
	}
	require.NotNil(t, res.MACD)
	assert.True(t, res.MACD.DIFPositive)
	require.NotNil(t, res.MACD.PrevHist)
	assert.Contains(t, res.MACD.Label, "DIF 大於 0")
}

func TestAnalyze_ShortSeries(t *testing.T) {
	s := &model.Series{Instrument: "OTC", Rows: []model.Row{model.NewRow(time.Now(), 1, 1, 1, 1, 1)}}
	res, err := Analyze(s)
	require.NoError(t, err)
	assert.Empty(t, res.MAs)
	assert.Equal(t, AlignUnknown, res.Alignment)
	assert.Nil(t, res.MACD)

	_, err = Analyze(&model.Series{})
	assert.ErrorIs(t, err, ErrEmptySeries)
}
