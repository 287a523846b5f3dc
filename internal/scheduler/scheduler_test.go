package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaiexCache/internal/cache"
	"TaiexCache/internal/collector"
	"TaiexCache/internal/freshness"
	"TaiexCache/internal/model"
	"TaiexCache/internal/recorder"
)

type fakeSource struct {
	mu     sync.Mutex
	series map[string]*model.Series
	errs   map[string]error
	forced []bool
}

func (f *fakeSource) Get(_ context.Context, inst string, force bool) (*model.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, force)
	if err := f.errs[inst]; err != nil {
		return nil, err
	}
	return f.series[inst], nil
}

type memRecorder struct {
	recorder.NoopRecorder
	runs []*recorder.PrewarmRun
}

func (m *memRecorder) RecordPrewarm(run *recorder.PrewarmRun) error {
	m.runs = append(m.runs, run)
	return nil
}

type captureNotifier struct{ texts []string }

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func rows(n int) []model.Row {
	out := make([]model.Row, n)
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = model.Row{Date: d.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100}
	}
	return out
}

func TestPrewarmerRun(t *testing.T) {
	src := &fakeSource{
		series: map[string]*model.Series{
			"TSE": {Instrument: "TSE", Rows: rows(3)},
			"OTC": {Instrument: "OTC", Rows: rows(2), Stale: true},
		},
		errs: map[string]error{"XYZ": errors.New("no data")},
	}
	rec := &memRecorder{}
	n := &captureNotifier{}
	p := NewPrewarmer(src, []string{"TSE", "OTC", "XYZ"}, rec, n)

	run := p.Run(context.Background())

	require.Len(t, run.Results, 3)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, []bool{true, true, true}, src.forced)

	assert.True(t, run.Results[0].OK)
	assert.Equal(t, 3, run.Results[0].Rows)

	assert.False(t, run.Results[1].OK)
	assert.True(t, run.Results[1].Stale)
	assert.Equal(t, 2, run.Results[1].Rows)

	assert.False(t, run.Results[2].OK)
	assert.Equal(t, "no data", run.Results[2].Err)
	assert.Equal(t, 2, run.Failed())

	require.Len(t, rec.runs, 1)
	assert.Same(t, run, rec.runs[0])
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "成功 1 / 3")
	assert.Contains(t, n.texts[0], "❌ XYZ: no data")
}

func TestPrewarmerWithoutNotifier(t *testing.T) {
	src := &fakeSource{series: map[string]*model.Series{"TSE": {Instrument: "TSE", Rows: rows(1)}}}
	p := NewPrewarmer(src, []string{"TSE"}, nil, nil)
	run := p.Run(context.Background())
	assert.Zero(t, run.Failed())
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestSchedulerRegister(t *testing.T) {
	p := NewPrewarmer(&fakeSource{}, nil, nil, nil)
	s := NewScheduler(context.Background(), p, time.UTC)

	require.NoError(t, s.Register("0 30 7 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)

	err := s.Register("not a cron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register prewarm task")
}

func TestSchedulerSkipsAfterCancel(t *testing.T) {
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(ctx, NewPrewarmer(src, []string{"TSE"}, nil, nil), nil)
	s.prewarmTask()
	assert.Empty(t, src.forced)
}

func TestPrewarmerFailsWhenOnlySnapshotSucceeds(t *testing.T) {
	taipei := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 6, 5, 10, 0, 0, 0, taipei)
	clock := func() time.Time { return now }
	mock := &collector.MockFetcher{
		Price:    17000,
		Location: taipei,
		Now:      clock,
		Snapshots: map[string]model.Snapshot{
			"TSE": {Instrument: "TSE", Open: 17000, High: 17100, Low: 16900, Close: 17050, TotalAmount: 1e11, Timestamp: now.Add(-time.Minute)},
		},
	}
	policy, err := freshness.NewPolicy(time.Hour, time.Minute, "08:45", "14:00", taipei)
	require.NoError(t, err)
	c, err := cache.New(cache.Options{
		History:      mock,
		Snapshots:    mock,
		Policy:       policy,
		HistoryStart: time.Date(2024, 1, 1, 0, 0, 0, 0, taipei),
		FetchTimeout: time.Second,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)

	p := NewPrewarmer(c, []string{"TSE"}, nil, nil)
	p.Now = clock
	run := p.Run(context.Background())
	require.Zero(t, run.Failed())

	// During the session a forced refresh whose bulk fetch fails still
	// merges a snapshot; the run must report the failure.
	mock.SetHistoryErr(errors.New("bulk down"))
	now = now.Add(2 * time.Minute)
	run = p.Run(context.Background())
	require.Len(t, run.Results, 1)
	assert.False(t, run.Results[0].OK)
	assert.True(t, run.Results[0].Stale)
	assert.Equal(t, 1, run.Failed())
	assert.Equal(t, 2, mock.SnapshotCalls())
}
