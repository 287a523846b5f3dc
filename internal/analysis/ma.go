package analysis

import (
	"fmt"

	"TaiexCache/internal/calculator"
	"TaiexCache/internal/model"
)

// MAPosition is where the close sits against one moving average.
type MAPosition struct {
	Window int     `json:"window"`
	Value  float64 `json:"value"`
	Above  bool    `json:"above"`
	Label  string  `json:"label"`
}

var maNames = map[int]string{
	5:   "5日均線",
	20:  "月均線",
	60:  "季均線",
	120: "半年均線",
}

// maPositions lists the defined averages in window order.
func maPositions(r model.Row) []MAPosition {
	var out []MAPosition
	for _, w := range calculator.MAWindows {
		ma := r.MA(w)
		if ma.IsNone() {
			continue
		}
		v := ma.Unwrap()
		above := r.Close > v
		verb := "跌破"
		if above {
			verb = "站上"
		}
		out = append(out, MAPosition{
			Window: w,
			Value:  v,
			Above:  above,
			Label:  fmt.Sprintf("%s%s (%.2f)", verb, maNames[w], v),
		})
	}
	return out
}

// Alignment classifies the order of the 5/20/60-day averages.
type Alignment string

const (
	AlignUnknown      Alignment = "unknown"
	AlignBull         Alignment = "bull"
	AlignBullPullback Alignment = "bull_pullback"
	AlignBearBounce   Alignment = "bear_bounce"
	AlignBear         Alignment = "bear"
	AlignTangled      Alignment = "tangled"
)

var alignmentLabels = map[Alignment]string{
	AlignUnknown:      "資料不足",
	AlignBull:         "多頭排列：5MA > 20MA > 60MA，趨勢向上",
	AlignBullPullback: "多頭短期修正：5MA < 20MA，但 5MA > 60MA，短線回檔",
	AlignBearBounce:   "空頭短期反彈：5MA > 20MA，但 5MA < 60MA，短線反彈",
	AlignBear:         "空頭排列：5MA < 20MA < 60MA，趨勢向下",
	AlignTangled:      "均線糾結：均線交錯，趨勢不明",
}

func alignmentOf(r model.Row) Alignment {
	if r.MA5.IsNone() || r.MA20.IsNone() || r.MA60.IsNone() {
		return AlignUnknown
	}
	ma5, ma20, ma60 := r.MA5.Unwrap(), r.MA20.Unwrap(), r.MA60.Unwrap()

	switch {
	case ma5 > ma20 && ma20 > ma60:
		return AlignBull
	case ma5 < ma20 && ma20 > ma60 && ma5 > ma60:
		return AlignBullPullback
	case ma5 > ma20 && ma20 < ma60 && ma5 < ma60:
		return AlignBearBounce
	case ma5 < ma20 && ma20 < ma60:
		return AlignBear
	default:
		return AlignTangled
	}
}
