package freshness

import (
	"testing"
	"time"

	"TaiexCache/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taipei = time.FixedZone("CST", 8*3600)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(DefaultHistoricalInterval, DefaultRealtimeInterval, DefaultTradingStart, DefaultTradingEnd, taipei)
	require.NoError(t, err)
	return p
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, taipei)
}

func entryThrough(last time.Time, refreshed time.Time) *model.Entry {
	return &model.Entry{
		Series:                &model.Series{Rows: []model.Row{model.NewRow(last, 1, 1, 1, 1, 1)}},
		LastHistoricalRefresh: refreshed,
	}
}

func TestNewPolicy_Validation(t *testing.T) {
	_, err := NewPolicy(0, time.Second, "08:45", "14:00", taipei)
	assert.Error(t, err)
	_, err = NewPolicy(time.Hour, 0, "08:45", "14:00", taipei)
	assert.Error(t, err)
	_, err = NewPolicy(time.Hour, time.Second, "14:00", "08:45", taipei)
	assert.Error(t, err)
	_, err = NewPolicy(time.Hour, time.Second, "8h", "14:00", taipei)
	assert.Error(t, err)

	p := newTestPolicy(t)
	assert.Equal(t, "08:45", p.TradingStart.String())
	assert.Equal(t, "14:00", p.TradingEnd.String())
}

func TestHistoricalStale_Interval(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 5, 10, 0) // Wednesday
	yesterday := time.Date(2024, 6, 4, 0, 0, 0, 0, taipei)

	stale, reason := p.HistoricalStale(entryThrough(yesterday, now.Add(-1800*time.Second)), now, false)
	assert.False(t, stale)
	assert.Equal(t, ReasonFresh, reason)

	stale, reason = p.HistoricalStale(entryThrough(yesterday, now.Add(-3700*time.Second)), now, false)
	assert.True(t, stale)
	assert.Equal(t, ReasonInterval, reason)
}

func TestHistoricalStale_AbsentAndForced(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 5, 10, 0)

	stale, reason := p.HistoricalStale(nil, now, false)
	assert.True(t, stale)
	assert.Equal(t, ReasonAbsent, reason)

	stale, reason = p.HistoricalStale(&model.Entry{Series: &model.Series{}}, now, false)
	assert.True(t, stale)
	assert.Equal(t, ReasonAbsent, reason)

	fresh := entryThrough(time.Date(2024, 6, 4, 0, 0, 0, 0, taipei), now)
	stale, reason = p.HistoricalStale(fresh, now, true)
	assert.True(t, stale)
	assert.Equal(t, ReasonForced, reason)
}

func TestHistoricalStale_DateGap(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 5, 9, 0)
	lastMonday := time.Date(2024, 6, 3, 0, 0, 0, 0, taipei)

	// Checked late yesterday: the gap forces a recheck.
	stale, reason := p.HistoricalStale(entryThrough(lastMonday, at(2024, 6, 4, 23, 50)), now, false)
	assert.True(t, stale)
	assert.Equal(t, ReasonGap, reason)

	// Already checked today: an unfillable gap (holiday) waits for the interval.
	stale, _ = p.HistoricalStale(entryThrough(lastMonday, at(2024, 6, 5, 8, 30)), now, false)
	assert.False(t, stale)
}

func TestHistoricalStale_MondayUsesFriday(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 10, 9, 0) // Monday
	friday := time.Date(2024, 6, 7, 0, 0, 0, 0, taipei)

	stale, _ := p.HistoricalStale(entryThrough(friday, at(2024, 6, 9, 23, 0)), now, false)
	assert.True(t, stale, "interval elapsed since Sunday")

	stale, _ = p.HistoricalStale(entryThrough(friday, at(2024, 6, 10, 8, 30)), now, false)
	assert.False(t, stale)
}

func TestInTradingHours(t *testing.T) {
	p := newTestPolicy(t)
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before open", at(2024, 6, 5, 8, 44), false},
		{"at open", at(2024, 6, 5, 8, 45), true},
		{"midday", at(2024, 6, 5, 11, 0), true},
		{"at close", at(2024, 6, 5, 14, 0), false},
		{"saturday", at(2024, 6, 8, 10, 0), false},
		{"utc instant inside window", time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.InTradingHours(tt.now))
		})
	}
}

func TestRealtimeStale(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 5, 10, 0)

	assert.True(t, p.RealtimeStale(nil, now))
	assert.True(t, p.RealtimeStale(&model.Entry{LastRealtimeRefresh: now.Add(-61 * time.Second)}, now))
	assert.False(t, p.RealtimeStale(&model.Entry{LastRealtimeRefresh: now.Add(-30 * time.Second)}, now))

	evening := at(2024, 6, 5, 19, 0)
	assert.False(t, p.RealtimeStale(&model.Entry{LastRealtimeRefresh: evening.Add(-5 * time.Hour)}, evening))
}

func TestFetchRange(t *testing.T) {
	p := newTestPolicy(t)
	now := at(2024, 6, 5, 10, 0)
	historyStart := time.Date(2024, 1, 1, 0, 0, 0, 0, taipei)

	start, end, ok := p.FetchRange(nil, now, historyStart, false)
	require.True(t, ok)
	assert.Equal(t, historyStart, start)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, taipei), end)

	e := entryThrough(time.Date(2024, 5, 31, 0, 0, 0, 0, taipei), now)
	start, _, ok = p.FetchRange(e, now, historyStart, false)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, taipei), start)

	start, _, _ = p.FetchRange(e, now, historyStart, true)
	assert.Equal(t, historyStart, start)

	upToDate := entryThrough(time.Date(2024, 6, 4, 0, 0, 0, 0, taipei), now)
	_, _, ok = p.FetchRange(upToDate, now, historyStart, false)
	assert.False(t, ok)
}
