// Package store persists the historical slice of each instrument's series.
// Only rows strictly before the current calendar day are ever written.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"TaiexCache/internal/model"
)

var (
	// ErrNotFound means nothing has been persisted for the instrument.
	ErrNotFound = errors.New("store: not found")
	// ErrCorrupt means the persisted data could not be decoded. The bad data
	// has already been moved aside, so the next Load reports ErrNotFound.
	ErrCorrupt = errors.New("store: corrupt cache data")
)

// Store is the durable cache for historical rows.
type Store interface {
	Load(ctx context.Context, instrument string) ([]model.Row, error)
	Save(ctx context.Context, instrument string, rows []model.Row) error
	Clear(ctx context.Context, instrument string) error
	ClearAll(ctx context.Context) error
	Name() string
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexDomain is the subdirectory (or key namespace) for index series.
const IndexDomain = "index"

const dateLayout = "2006-01-02"

// Clock decides what "today" is for the Save cutoff.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Clock) today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return model.DateOf(now(), c.Location)
}

// historical returns the rows dated strictly before today.
func (c Clock) historical(rows []model.Row) []model.Row {
	return model.Before(rows, c.today())
}

func validateInstrument(id string) error {
	if id == "" || strings.ContainsAny(id, `/\:*?"<>|`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid instrument id %q", id)
	}
	return nil
}
