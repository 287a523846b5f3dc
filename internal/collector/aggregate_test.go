package collector

import (
	"testing"
	"time"

	"TaiexCache/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taipei = time.FixedZone("CST", 8*3600)

func TestAggregateDaily(t *testing.T) {
	bar := func(d, hh, mm int, o, h, l, c, amt float64) model.Bar {
		return model.Bar{Time: time.Date(2024, 6, d, hh, mm, 0, 0, taipei), Open: o, High: h, Low: l, Close: c, Amount: amt}
	}
	bars := []model.Bar{
		bar(4, 9, 1, 200, 205, 199, 204, 30),
		bar(3, 13, 30, 103, 104, 101, 102, 20),
		bar(3, 9, 1, 100, 106, 99, 103, 10),
		bar(4, 13, 30, 204, 210, 198, 207, 40),
	}

	rows := AggregateDaily(bars, taipei)
	require.Len(t, rows, 2)

	d1 := rows[0]
	assert.True(t, d1.Date.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, taipei)))
	assert.Equal(t, 100.0, d1.Open)
	assert.Equal(t, 106.0, d1.High)
	assert.Equal(t, 99.0, d1.Low)
	assert.Equal(t, 102.0, d1.Close)
	assert.Equal(t, 30.0, d1.Amount)
	assert.True(t, d1.MA5.IsNone())

	d2 := rows[1]
	assert.Equal(t, 200.0, d2.Open)
	assert.Equal(t, 210.0, d2.High)
	assert.Equal(t, 198.0, d2.Low)
	assert.Equal(t, 207.0, d2.Close)
	assert.Equal(t, 70.0, d2.Amount)
}

func TestAggregateDaily_UsesLocalDate(t *testing.T) {
	// 2024-06-03 23:30 UTC is already 06-04 in Taipei.
	bars := []model.Bar{{Time: time.Date(2024, 6, 3, 23, 30, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1}}
	rows := AggregateDaily(bars, taipei)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Date.Day())
}

func TestAggregateDaily_Empty(t *testing.T) {
	assert.Nil(t, AggregateDaily(nil, taipei))
}
