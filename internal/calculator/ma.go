package calculator

import (
	"errors"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// MAWindows are the moving-average windows carried on every row.
var MAWindows = []int{5, 20, 60, 120}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverages returns the trailing simple mean for every index of closes.
// Indexes with fewer than window prior values are None.
func MovingAverages(closes []float64, window int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(closes))
	for i := range out {
		out[i] = optional.None[float64]()
	}
	if window <= 0 || len(closes) < window {
		return out
	}

	series := closeSeries(closes)
	sma := techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(series), window)
	for i := window - 1; i < len(closes); i++ {
		out[i] = optional.Some(sma.Calculate(i).Float())
	}
	return out
}

// closeSeries wraps a bare close column in a techan series. Candle periods are
// synthetic consecutive days; only ordering matters to the indicators.
func closeSeries(closes []float64) *techan.TimeSeries {
	series := techan.NewTimeSeries()
	start := time.Unix(0, 0).UTC()
	for i, c := range closes {
		period := techan.NewTimePeriod(start.AddDate(0, 0, i), 24*time.Hour)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewDecimal(c)
		candle.MaxPrice = big.NewDecimal(c)
		candle.MinPrice = big.NewDecimal(c)
		candle.ClosePrice = big.NewDecimal(c)
		series.AddCandle(candle)
	}
	return series
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
