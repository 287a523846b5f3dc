package calculator

import "github.com/moznion/go-optional"

// MACD periods used across the dashboard.
const (
	FastPeriod   = 12
	SlowPeriod   = 26
	SignalPeriod = 9
)

// MACDResult holds the three MACD columns aligned with the input closes.
type MACDResult struct {
	DIF    []optional.Option[float64]
	Signal []optional.Option[float64]
	Hist   []optional.Option[float64]
}

// MACDLookback is the number of leading rows that never carry a MACD value.
func MACDLookback(slow, signal int) int {
	return (slow - 1) + (signal - 1)
}

// CalculateMACD computes DIF, signal and histogram the way TA-Lib does: each
// EMA is seeded with the simple mean of its first period inputs, the fast EMA
// starts where the slow one does, and the first slow+signal-2 outputs are None.
func CalculateMACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		DIF:    noneColumn(n),
		Signal: noneColumn(n),
		Hist:   noneColumn(n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || fast > slow {
		return res
	}
	lookback := MACDLookback(slow, signal)
	if n <= lookback {
		return res
	}

	start := slow - 1
	fastEMA := seededEMA(closes, start, fast)
	slowEMA := seededEMA(closes, start, slow)

	dif := make([]float64, n)
	for i := start; i < n; i++ {
		dif[i] = fastEMA[i] - slowEMA[i]
	}
	signalEMA := seededEMA(dif[start:], signal-1, signal)

	for i := lookback; i < n; i++ {
		sig := signalEMA[i-start]
		res.DIF[i] = optional.Some(dif[i])
		res.Signal[i] = optional.Some(sig)
		res.Hist[i] = optional.Some(dif[i] - sig)
	}
	return res
}

// seededEMA returns an EMA column whose first value sits at index first and
// equals the mean of the period inputs ending there. Entries before first are zero.
func seededEMA(values []float64, first, period int) []float64 {
	out := make([]float64, len(values))
	if first >= len(values) || first-period+1 < 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := first - period + 1; i <= first; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[first] = prev
	for i := first + 1; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

func noneColumn(n int) []optional.Option[float64] {
	col := make([]optional.Option[float64], n)
	for i := range col {
		col[i] = optional.None[float64]()
	}
	return col
}
