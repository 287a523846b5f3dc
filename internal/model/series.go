package model

import "time"

// Series is the ordered daily history of one instrument, strictly increasing
// by date with weekends excluded.
type Series struct {
	Instrument string
	Rows       []Row
	// Stale is set on copies handed to callers when the latest refresh
	// attempt failed and cached data was served instead.
	Stale bool
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	c := &Series{Instrument: s.Instrument, Stale: s.Stale, Rows: make([]Row, len(s.Rows))}
	for i, r := range s.Rows {
		c.Rows[i] = r.Clone()
	}
	return c
}

// Len returns the number of rows.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Last returns the latest row.
func (s *Series) Last() (Row, bool) {
	if s.Len() == 0 {
		return Row{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// IndexOf returns the index of the row dated day, or -1.
func (s *Series) IndexOf(day time.Time) int {
	if s == nil {
		return -1
	}
	return IndexOfDate(s.Rows, day)
}

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	return Closes(s.Rows)
}

// Historical returns the rows dated strictly before today.
func (s *Series) Historical(today time.Time) []Row {
	if s == nil {
		return nil
	}
	return Before(s.Rows, today)
}

// LastDateBefore returns the date of the latest row strictly before today.
func (s *Series) LastDateBefore(today time.Time) (time.Time, bool) {
	hist := s.Historical(today)
	if len(hist) == 0 {
		return time.Time{}, false
	}
	return hist[len(hist)-1].Date, true
}

// Closes extracts the close column from rows.
func Closes(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Close
	}
	return out
}

// Before returns the prefix of sorted rows dated strictly before day.
func Before(rows []Row, day time.Time) []Row {
	for i, r := range rows {
		if !r.Date.Before(day) {
			return rows[:i]
		}
	}
	return rows
}

// IndexOfDate finds the row whose calendar date equals day's.
func IndexOfDate(rows []Row, day time.Time) int {
	y, m, d := day.Date()
	for i := len(rows) - 1; i >= 0; i-- {
		ry, rm, rd := rows[i].Date.Date()
		if ry == y && rm == m && rd == d {
			return i
		}
	}
	return -1
}
