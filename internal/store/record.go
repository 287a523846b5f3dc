package store

import (
	"fmt"
	"time"

	"TaiexCache/internal/model"

	"github.com/moznion/go-optional"
)

// rowRecord is the persisted shape of a row. Nil pointers mark undefined
// indicators.
type rowRecord struct {
	Date     string   `parquet:"date" json:"date"`
	Open     float64  `parquet:"open" json:"open"`
	High     float64  `parquet:"high" json:"high"`
	Low      float64  `parquet:"low" json:"low"`
	Close    float64  `parquet:"close" json:"close"`
	Amount   float64  `parquet:"amount" json:"amount"`
	DIF      *float64 `parquet:"dif" json:"dif"`
	MACD     *float64 `parquet:"macd" json:"macd"`
	MACDHist *float64 `parquet:"macd_hist" json:"macd_hist"`
	MA5      *float64 `parquet:"ma5" json:"ma5"`
	MA20     *float64 `parquet:"ma20" json:"ma20"`
	MA60     *float64 `parquet:"ma60" json:"ma60"`
	MA120    *float64 `parquet:"ma120" json:"ma120"`
}

func toRecords(rows []model.Row) []rowRecord {
	out := make([]rowRecord, len(rows))
	for i, r := range rows {
		out[i] = rowRecord{
			Date:     r.Date.Format(dateLayout),
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Amount:   r.Amount,
			DIF:      ptr(r.DIF),
			MACD:     ptr(r.MACD),
			MACDHist: ptr(r.MACDHist),
			MA5:      ptr(r.MA5),
			MA20:     ptr(r.MA20),
			MA60:     ptr(r.MA60),
			MA120:    ptr(r.MA120),
		}
	}
	return out
}

func fromRecords(recs []rowRecord, loc *time.Location) ([]model.Row, error) {
	if loc == nil {
		loc = time.Local
	}
	out := make([]model.Row, len(recs))
	for i, rec := range recs {
		d, err := time.ParseInLocation(dateLayout, rec.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if i > 0 && !d.After(out[i-1].Date) {
			return nil, fmt.Errorf("row %d: date %s out of order", i, rec.Date)
		}
		out[i] = model.Row{
			Date:     d,
			Open:     rec.Open,
			High:     rec.High,
			Low:      rec.Low,
			Close:    rec.Close,
			Amount:   rec.Amount,
			DIF:      opt(rec.DIF),
			MACD:     opt(rec.MACD),
			MACDHist: opt(rec.MACDHist),
			MA5:      opt(rec.MA5),
			MA20:     opt(rec.MA20),
			MA60:     opt(rec.MA60),
			MA120:    opt(rec.MA120),
		}
	}
	return out, nil
}

func ptr(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}
	v := o.Unwrap()
	return &v
}

func opt(p *float64) optional.Option[float64] {
	if p == nil {
		return optional.None[float64]()
	}
	return optional.Some(*p)
}
