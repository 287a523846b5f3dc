package model

import (
	"time"

	"github.com/moznion/go-optional"
)

// Row is one trading day for one instrument. Indicator fields stay None until
// enough history exists to compute them.
type Row struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Amount float64

	DIF      optional.Option[float64]
	MACD     optional.Option[float64]
	MACDHist optional.Option[float64]
	MA5      optional.Option[float64]
	MA20     optional.Option[float64]
	MA60     optional.Option[float64]
	MA120    optional.Option[float64]
}

// NewRow builds a row with every indicator undefined.
func NewRow(date time.Time, open, high, low, close, amount float64) Row {
	r := Row{Date: date, Open: open, High: high, Low: low, Close: close, Amount: amount}
	r.ClearIndicators()
	return r
}

// Volume is the traded amount in units of 100 million.
func (r Row) Volume() float64 {
	return r.Amount / 1e8
}

// HasOHLC reports whether all four prices are usable numbers.
func (r Row) HasOHLC() bool {
	return validPrice(r.Open) && validPrice(r.High) && validPrice(r.Low) && validPrice(r.Close)
}

// ClearIndicators resets every derived field to None.
func (r *Row) ClearIndicators() {
	r.DIF = optional.None[float64]()
	r.MACD = optional.None[float64]()
	r.MACDHist = optional.None[float64]()
	r.MA5 = optional.None[float64]()
	r.MA20 = optional.None[float64]()
	r.MA60 = optional.None[float64]()
	r.MA120 = optional.None[float64]()
}

// Clone returns a deep copy. Option values are backed by slices, so a plain
// struct copy would still share them.
func (r Row) Clone() Row {
	c := r
	c.DIF = cloneOpt(r.DIF)
	c.MACD = cloneOpt(r.MACD)
	c.MACDHist = cloneOpt(r.MACDHist)
	c.MA5 = cloneOpt(r.MA5)
	c.MA20 = cloneOpt(r.MA20)
	c.MA60 = cloneOpt(r.MA60)
	c.MA120 = cloneOpt(r.MA120)
	return c
}

// MA returns the moving average for the given window (5, 20, 60 or 120).
func (r Row) MA(window int) optional.Option[float64] {
	switch window {
	case 5:
		return r.MA5
	case 20:
		return r.MA20
	case 60:
		return r.MA60
	case 120:
		return r.MA120
	}
	return optional.None[float64]()
}

// SetMA assigns the moving average for the given window. Unknown windows are ignored.
func (r *Row) SetMA(window int, v optional.Option[float64]) {
	switch window {
	case 5:
		r.MA5 = v
	case 20:
		r.MA20 = v
	case 60:
		r.MA60 = v
	case 120:
		r.MA120 = v
	}
}

func cloneOpt(o optional.Option[float64]) optional.Option[float64] {
	if o.IsSome() {
		return optional.Some(o.Unwrap())
	}
	return optional.None[float64]()
}
