// Package freshness decides when cached history needs a bulk refetch and when
// the current session needs a new snapshot.
package freshness

import (
	"fmt"
	"time"

	"TaiexCache/internal/model"
)

// Defaults for a Taiwan index dashboard.
const (
	DefaultHistoricalInterval = time.Hour
	DefaultRealtimeInterval   = 60 * time.Second
	DefaultTradingStart       = "08:45"
	DefaultTradingEnd         = "14:00"
)

// Reason explains a historical staleness verdict.
type Reason string

const (
	ReasonFresh    Reason = ""
	ReasonForced   Reason = "forced"
	ReasonAbsent   Reason = "absent"
	ReasonGap      Reason = "missing_days"
	ReasonInterval Reason = "interval_elapsed"
)

// ClockTime is a local time of day in minutes after midnight.
type ClockTime int

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Policy holds the freshness settings. The zero value is not usable; build it
// with NewPolicy.
type Policy struct {
	HistoricalInterval time.Duration
	RealtimeInterval   time.Duration
	TradingStart       ClockTime
	TradingEnd         ClockTime
	Location           *time.Location
}

// NewPolicy validates and builds a policy.
func NewPolicy(historical, realtime time.Duration, start, end string, loc *time.Location) (*Policy, error) {
	if historical <= 0 {
		return nil, fmt.Errorf("historical interval must be positive, got %s", historical)
	}
	if realtime <= 0 {
		return nil, fmt.Errorf("realtime interval must be positive, got %s", realtime)
	}
	s, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	if s >= e {
		return nil, fmt.Errorf("trading window start %s must be before end %s", s, e)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Policy{
		HistoricalInterval: historical,
		RealtimeInterval:   realtime,
		TradingStart:       s,
		TradingEnd:         e,
		Location:           loc,
	}, nil
}

// Today returns the calendar date of now in the policy's location.
func (p *Policy) Today(now time.Time) time.Time {
	return model.DateOf(now, p.Location)
}

// Yesterday returns the calendar day before today.
func (p *Policy) Yesterday(now time.Time) time.Time {
	return p.Today(now).AddDate(0, 0, -1)
}

// InTradingHours reports whether now falls on a weekday inside the window.
func (p *Policy) InTradingHours(now time.Time) bool {
	lt := now.In(p.Location)
	if !model.IsTradingDay(lt) {
		return false
	}
	hm := ClockTime(lt.Hour()*60 + lt.Minute())
	return hm >= p.TradingStart && hm < p.TradingEnd
}

// HistoricalStale decides whether entry needs a bulk refetch.
//
// A date gap (latest persisted day older than the previous weekday) forces a
// check at most once per calendar day; after that only the interval applies,
// so a holiday does not cause a refetch on every request.
func (p *Policy) HistoricalStale(entry *model.Entry, now time.Time, force bool) (bool, Reason) {
	if force {
		return true, ReasonForced
	}
	if entry == nil || entry.Series.Len() == 0 || entry.LastHistoricalRefresh.IsZero() {
		return true, ReasonAbsent
	}

	today := p.Today(now)
	last, ok := entry.Series.LastDateBefore(today)
	if !ok {
		return true, ReasonAbsent
	}
	checkedToday := !entry.LastHistoricalRefresh.Before(today)
	if last.Before(model.PreviousTradingDay(today)) && !checkedToday {
		return true, ReasonGap
	}
	if now.Sub(entry.LastHistoricalRefresh) > p.HistoricalInterval {
		return true, ReasonInterval
	}
	return false, ReasonFresh
}

// RealtimeStale reports whether a new snapshot should be merged. It is always
// false outside the trading window.
func (p *Policy) RealtimeStale(entry *model.Entry, now time.Time) bool {
	if !p.InTradingHours(now) {
		return false
	}
	if entry == nil || entry.LastRealtimeRefresh.IsZero() {
		return true
	}
	return now.Sub(entry.LastRealtimeRefresh) > p.RealtimeInterval
}

// FetchRange returns the inclusive day range a bulk fetch should cover. With
// no history, or when forced, it starts at historyStart. ok is false when
// nothing is missing.
func (p *Policy) FetchRange(entry *model.Entry, now, historyStart time.Time, force bool) (start, end time.Time, ok bool) {
	today := p.Today(now)
	end = today.AddDate(0, 0, -1)
	start = model.DateOf(historyStart, p.Location)

	if !force && entry != nil {
		if last, found := entry.Series.LastDateBefore(today); found {
			start = last.AddDate(0, 0, 1)
		}
	}
	return start, end, !start.After(end)
}
