package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededEMA(t *testing.T) {
	out := seededEMA([]float64{1, 2, 3, 4, 5}, 2, 3)
	assert.Equal(t, []float64{0, 0, 2, 3, 4}, out)
}

func TestCalculateMACD_Lookback(t *testing.T) {
	assert.Equal(t, 33, MACDLookback(SlowPeriod, SignalPeriod))

	for _, n := range []int{0, 1, 2, 33} {
		closes := flat(n, 100)
		res := CalculateMACD(closes, FastPeriod, SlowPeriod, SignalPeriod)
		require.Len(t, res.DIF, n)
		for i := 0; i < n; i++ {
			assert.True(t, res.DIF[i].IsNone(), "n=%d index %d", n, i)
			assert.True(t, res.Signal[i].IsNone())
			assert.True(t, res.Hist[i].IsNone())
		}
	}
}

func TestCalculateMACD_FlatSeries(t *testing.T) {
	res := CalculateMACD(flat(40, 100), FastPeriod, SlowPeriod, SignalPeriod)
	assert.True(t, res.DIF[32].IsNone())
	for i := 33; i < 40; i++ {
		require.True(t, res.DIF[i].IsSome(), "index %d", i)
		assert.InDelta(t, 0, res.DIF[i].Unwrap(), 1e-9)
		assert.InDelta(t, 0, res.Signal[i].Unwrap(), 1e-9)
		assert.InDelta(t, 0, res.Hist[i].Unwrap(), 1e-9)
	}
}

func TestCalculateMACD_Uptrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := CalculateMACD(closes, FastPeriod, SlowPeriod, SignalPeriod)
	last := len(closes) - 1
	// Fast EMA tracks a rising series more closely than the slow one.
	assert.Greater(t, res.DIF[last].Unwrap(), 0.0)
	assert.InDelta(t, res.DIF[last].Unwrap()-res.Signal[last].Unwrap(), res.Hist[last].Unwrap(), 1e-12)
	// On a linear series the EMAs lag by a constant, so DIF converges to (slow-fast)/2.
	assert.InDelta(t, 7.0, res.DIF[last].Unwrap(), 0.05)
}

func TestCalculateMACD_BadPeriods(t *testing.T) {
	res := CalculateMACD(flat(50, 1), 26, 12, 9)
	for _, v := range res.DIF {
		assert.True(t, v.IsNone())
	}
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i)*0.3
	}
	return out
}
