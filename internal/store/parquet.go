package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TaiexCache/internal/logger"
	"TaiexCache/internal/model"

	"github.com/parquet-go/parquet-go"
)

// ParquetStore keeps one Parquet file per instrument under
// <root>/index/<instrument>_historical.parquet.
type ParquetStore struct {
	Dir string
	Clock
}

// NewParquetStore creates a file store rooted at root.
func NewParquetStore(root string, loc *time.Location) *ParquetStore {
	return &ParquetStore{
		Dir:   filepath.Join(root, IndexDomain),
		Clock: Clock{Location: loc, Now: time.Now},
	}
}

func (s *ParquetStore) Name() string { return "parquet" }

func (s *ParquetStore) path(instrument string) string {
	return filepath.Join(s.Dir, instrument+"_historical.parquet")
}

// Load reads the persisted rows. An unreadable file is renamed to
// *.corrupt and ErrCorrupt is returned.
func (s *ParquetStore) Load(_ context.Context, instrument string) ([]model.Row, error) {
	if err := validateInstrument(instrument); err != nil {
		return nil, err
	}
	path := s.path(instrument)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	recs, err := parquet.ReadFile[rowRecord](path)
	if err != nil {
		return nil, s.quarantine(instrument, path, err)
	}
	rows, err := fromRecords(recs, s.Location)
	if err != nil {
		return nil, s.quarantine(instrument, path, err)
	}
	return rows, nil
}

func (s *ParquetStore) quarantine(instrument, path string, cause error) error {
	bad := path + ".corrupt"
	if err := os.Rename(path, bad); err != nil {
		logger.Error("quarantine cache file failed", logger.Instrument(instrument), logger.String("path", path), logger.ErrorField(err))
	} else {
		logger.Warn("cache file quarantined", logger.Instrument(instrument), logger.String("path", bad), logger.ErrorField(cause))
	}
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, cause)
}

// Save atomically replaces the instrument's file with the rows dated before
// today. It is a no-op when there are none.
func (s *ParquetStore) Save(_ context.Context, instrument string, rows []model.Row) error {
	if err := validateInstrument(instrument); err != nil {
		return err
	}
	hist := s.historical(rows)
	if len(hist) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := s.path(instrument)
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := parquet.Write(tmp, toRecords(hist)); err != nil {
		cleanup()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Clear deletes the instrument's file. A missing file is not an error.
func (s *ParquetStore) Clear(_ context.Context, instrument string) error {
	if err := validateInstrument(instrument); err != nil {
		return err
	}
	if err := os.Remove(s.path(instrument)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// ClearAll deletes every cached file in the domain directory.
func (s *ParquetStore) ClearAll(_ context.Context) error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	return nil
}
