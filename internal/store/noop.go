package store

import (
	"context"

	"TaiexCache/internal/model"
)

// NoopStore persists nothing; every Load reports ErrNotFound.
type NoopStore struct{}

func (NoopStore) Name() string { return "noop" }
func (NoopStore) Load(context.Context, string) ([]model.Row, error) {
	return nil, ErrNotFound
}
func (NoopStore) Save(context.Context, string, []model.Row) error { return nil }
func (NoopStore) Clear(context.Context, string) error             { return nil }
func (NoopStore) ClearAll(context.Context) error                  { return nil }
