package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TaiexCache/internal/analysis"
	"TaiexCache/internal/recorder"
)

func TestFormatPrewarmReport(t *testing.T) {
	start := time.Date(2024, 6, 28, 7, 30, 0, 0, time.UTC)
	run := &recorder.PrewarmRun{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []recorder.PrewarmResult{
			{Instrument: "TSE", OK: true, Rows: 120},
			{Instrument: "OTC", OK: false, Err: "fetch <timeout>"},
		},
	}
	results := map[string]*analysis.Result{
		"TSE": {
			Instrument: "TSE",
			Date:       time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
			Close:      23032.25,
			MAs: []analysis.MAPosition{
				{Window: 5, Value: 22900, Above: true, Label: "站上5日均線 (22900.00)"},
			},
			Conclusion: "多頭排列",
		},
	}

	out := FormatPrewarmReport(run, results)
	assert.Contains(t, out, "⚠️")
	assert.Contains(t, out, "2024-06-28 07:30")
	assert.Contains(t, out, "成功 1 / 2")
	assert.Contains(t, out, "TSE: 120 筆")
	assert.Contains(t, out, "❌ OTC: fetch &lt;timeout&gt;")
	assert.Contains(t, out, "收盤 23032.25")
	assert.Contains(t, out, "↑ 站上5日均線")
	assert.NotContains(t, out, "MACD")
}

func TestFormatPrewarmReportAllOK(t *testing.T) {
	start := time.Date(2024, 6, 28, 7, 30, 0, 0, time.UTC)
	run := &recorder.PrewarmRun{
		StartedAt:  start,
		FinishedAt: start,
		Results:    []recorder.PrewarmResult{{Instrument: "TSE", OK: true, Rows: 10, Stale: true}},
	}
	out := FormatPrewarmReport(run, nil)
	assert.Contains(t, out, "✅")
	assert.Contains(t, out, "(資料過期)")
}
