package analysis

import (
	"fmt"

	"TaiexCache/internal/model"
)

// Histogram colors. Non-positive bars count as green.
const (
	ColorRed   = "red"
	ColorGreen = "green"
)

// Histogram trends against the previous row.
const (
	TrendGrowing   = "growing"
	TrendShrinking = "shrinking"
	TrendFlipped   = "flipped"
	TrendUnknown   = ""
)

// MACDState summarizes DIF and the histogram on the latest row.
type MACDState struct {
	DIF         float64  `json:"dif"`
	DIFPositive bool     `json:"dif_positive"`
	Hist        float64  `json:"hist"`
	PrevHist    *float64 `json:"prev_hist,omitempty"`
	Color       string   `json:"color"`
	Trend       string   `json:"trend,omitempty"`
	Label       string   `json:"label"`
}

// macdState returns nil until DIF and the histogram are both defined.
func macdState(last model.Row, prev *model.Row) *MACDState {
	if last.DIF.IsNone() || last.MACDHist.IsNone() {
		return nil
	}
	st := &MACDState{
		DIF:         last.DIF.Unwrap(),
		DIFPositive: last.DIF.Unwrap() > 0,
		Hist:        last.MACDHist.Unwrap(),
		Color:       ColorGreen,
	}
	if st.Hist > 0 {
		st.Color = ColorRed
	}

	if prev != nil && prev.MACDHist.IsSome() {
		p := prev.MACDHist.Unwrap()
		st.PrevHist = &p
		st.Trend = histTrend(st.Hist, p)
	}
	st.Label = macdLabel(st)
	return st
}

// histTrend compares bar length: a red bar grows upward, a green bar grows
// downward.
func histTrend(hist, prev float64) string {
	if hist > 0 {
		switch {
		case prev <= 0:
			return TrendFlipped
		case hist > prev:
			return TrendGrowing
		default:
			return TrendShrinking
		}
	}
	switch {
	case prev >= 0:
		return TrendFlipped
	case hist < prev:
		return TrendGrowing
	default:
		return TrendShrinking
	}
}

func macdLabel(st *MACDState) string {
	dif := "DIF 小於 0"
	if st.DIFPositive {
		dif = "DIF 大於 0"
	}
	bar := "柱狀體綠色"
	if st.Color == ColorRed {
		bar = "柱狀體紅色"
	}
	switch st.Trend {
	case TrendGrowing:
		bar += " 增長"
	case TrendShrinking:
		bar += " 縮短"
	case TrendFlipped:
		if st.Color == ColorRed {
			bar += " 綠轉紅"
		} else {
			bar += " 紅轉綠"
		}
	}
	return fmt.Sprintf("%s (%.2f)，%s (%.2f)", dif, st.DIF, bar, st.Hist)
}
