package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TaiexCache/internal/analysis"
	"TaiexCache/internal/recorder"
)

// FormatPrewarmReport summarises a pre-warm run, one line per instrument,
// followed by the analysis of each instrument that refreshed.
func FormatPrewarmReport(run *recorder.PrewarmRun, results map[string]*analysis.Result) string {
	var b strings.Builder

	status := "✅"
	if run.Failed() > 0 {
		status = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>TaiexCache 預熱</b> | %s\n", status, run.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("成功 %d / %d，耗時 %s\n\n",
		len(run.Results)-run.Failed(), len(run.Results), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))

	for _, res := range run.Results {
		if !res.OK {
			b.WriteString(fmt.Sprintf("❌ %s: %s\n", res.Instrument, html.EscapeString(res.Err)))
			continue
		}
		line := fmt.Sprintf("• %s: %d 筆", res.Instrument, res.Rows)
		if res.Stale {
			line += " (資料過期)"
		}
		b.WriteString(line + "\n")
	}

	for _, res := range run.Results {
		r, ok := results[res.Instrument]
		if !ok || r == nil {
			continue
		}
		b.WriteString("\n")
		b.WriteString(FormatAnalysis(r))
	}
	return b.String()
}

// FormatAnalysis renders one instrument's technical summary.
func FormatAnalysis(r *analysis.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> %s 收盤 %.2f\n", r.Instrument, r.Date.Format("2006-01-02"), r.Close))
	for _, p := range r.MAs {
		b.WriteString(fmt.Sprintf("  %s %s\n", aboveLabel(p.Above), p.Label))
	}
	b.WriteString(fmt.Sprintf("  %s\n", r.Conclusion))
	if r.MACD != nil {
		b.WriteString(fmt.Sprintf("  MACD: %s\n", r.MACD.Label))
	}
	return b.String()
}

func aboveLabel(above bool) string {
	if above {
		return "↑"
	}
	return "↓"
}
