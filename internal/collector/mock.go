package collector

import (
	"context"
	"sync"
	"time"

	"TaiexCache/internal/model"
)

// MockFetcher returns controllable data for development and testing. When
// History or Snapshots are unset it generates a deterministic drifting series.
type MockFetcher struct {
	Price    float64
	Location *time.Location
	Now      func() time.Time

	mu            sync.Mutex
	History       map[string][]model.Row
	Snapshots     map[string]model.Snapshot
	HistoryErr    error
	SnapshotErr   error
	historyCalls  int
	snapshotCalls int
}

func (m *MockFetcher) Name() string { return "mock" }

// SetHistoryErr makes subsequent FetchHistory calls fail with err.
func (m *MockFetcher) SetHistoryErr(err error) {
	m.mu.Lock()
	m.HistoryErr = err
	m.mu.Unlock()
}

// SetSnapshotErr makes subsequent FetchSnapshots calls fail with err.
func (m *MockFetcher) SetSnapshotErr(err error) {
	m.mu.Lock()
	m.SnapshotErr = err
	m.mu.Unlock()
}

// SetSnapshot replaces the reading returned for one instrument.
func (m *MockFetcher) SetSnapshot(s model.Snapshot) {
	m.mu.Lock()
	if m.Snapshots == nil {
		m.Snapshots = make(map[string]model.Snapshot)
	}
	m.Snapshots[s.Instrument] = s
	m.mu.Unlock()
}

// HistoryCalls is the number of FetchHistory calls so far.
func (m *MockFetcher) HistoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}

// SnapshotCalls is the number of FetchSnapshots calls so far.
func (m *MockFetcher) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCalls
}

func (m *MockFetcher) loc() *time.Location {
	if m.Location == nil {
		return time.Local
	}
	return m.Location
}

func (m *MockFetcher) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *MockFetcher) FetchHistory(ctx context.Context, instrument string, start, end time.Time) ([]model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	if rows, ok := m.History[instrument]; ok {
		out := make([]model.Row, 0, len(rows))
		for _, r := range inRange(rows, start, end) {
			out = append(out, r.Clone())
		}
		return out, nil
	}
	return generateMockRows(m.Price, start, end, m.loc()), nil
}

func (m *MockFetcher) FetchSnapshots(ctx context.Context, instruments []string) ([]model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	out := make([]model.Snapshot, 0, len(instruments))
	for _, inst := range instruments {
		if s, ok := m.Snapshots[inst]; ok {
			out = append(out, s)
			continue
		}
		if m.Snapshots != nil {
			continue
		}
		p := m.Price
		out = append(out, model.Snapshot{
			Instrument:  inst,
			Open:        p * 0.999,
			High:        p * 1.005,
			Low:         p * 0.995,
			Close:       p,
			TotalAmount: 1e11,
			Timestamp:   m.now(),
		})
	}
	return out, nil
}

// generateMockRows builds one row per weekday in start..end.
func generateMockRows(basePrice float64, start, end time.Time, loc *time.Location) []model.Row {
	var rows []model.Row
	i := 0
	for d := model.DateOf(start, loc); !d.After(model.DateOf(end, loc)); d = d.AddDate(0, 0, 1) {
		if !model.IsTradingDay(d) {
			continue
		}
		p := basePrice * (1 + float64(i%40-20)*0.001)
		rows = append(rows, model.NewRow(d, p*0.999, p*1.005, p*0.995, p, 2e11))
		i++
	}
	return rows
}
