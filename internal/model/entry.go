package model

import (
	"errors"
	"time"
)

// Entry is the in-memory cache record for one instrument.
type Entry struct {
	Series                *Series
	LastHistoricalRefresh time.Time
	LastRealtimeRefresh   time.Time
	// Each error is the latest failure of its refresh kind and is cleared
	// only by a success of the same kind.
	LastHistoricalError error
	LastRealtimeError   error
}

// Err joins the outstanding refresh failures; nil when both kinds are healthy.
func (e *Entry) Err() error {
	return errors.Join(e.LastHistoricalError, e.LastRealtimeError)
}

// Clone copies the entry, including a deep copy of the series.
func (e *Entry) Clone() Entry {
	return Entry{
		Series:                e.Series.Clone(),
		LastHistoricalRefresh: e.LastHistoricalRefresh,
		LastRealtimeRefresh:   e.LastRealtimeRefresh,
		LastHistoricalError:   e.LastHistoricalError,
		LastRealtimeError:     e.LastRealtimeError,
	}
}
