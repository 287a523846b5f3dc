package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		period  int
		want    float64
		wantErr bool
	}{
		{"exact window", []float64{1, 2, 3, 4, 5}, 5, 3, false},
		{"trailing window", []float64{1, 2, 3, 4, 5, 6}, 3, 5, false},
		{"too short", []float64{1, 2}, 3, 0, true},
		{"zero period", []float64{1, 2}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSMA(tt.prices, tt.period)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMovingAverages_WarmUp(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	col := MovingAverages(closes, 5)
	require.Len(t, col, 10)
	for i := 0; i < 4; i++ {
		assert.True(t, col[i].IsNone(), "index %d should be undefined", i)
	}
	assert.InDelta(t, 3.0, col[4].Unwrap(), 1e-9)
	assert.InDelta(t, 8.0, col[9].Unwrap(), 1e-9)
}

func TestMovingAverages_ShortInput(t *testing.T) {
	col := MovingAverages([]float64{1, 2, 3}, 5)
	require.Len(t, col, 3)
	for _, v := range col {
		assert.True(t, v.IsNone())
	}
	assert.Empty(t, MovingAverages(nil, 5))
}
