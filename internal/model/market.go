package model

import (
	"math"
	"time"
)

// Bar is a single OHLC bar as delivered by an upstream source. Intraday kbars
// and daily rows share this shape; Amount is traded value, not share count.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Amount float64
}

// Snapshot is the current-session reading for one instrument.
type Snapshot struct {
	Instrument  string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	TotalAmount float64
	Timestamp   time.Time
}

// DateOf truncates t to its calendar date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// IsTradingDay reports whether t falls on Monday through Friday.
// Public holidays are not known here.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// PreviousTradingDay returns the closest weekday strictly before day.
func PreviousTradingDay(day time.Time) time.Time {
	d := day.AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
