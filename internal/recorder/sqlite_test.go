package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RefreshEvents(t *testing.T) {
	r := openTestRecorder(t)
	base := time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordRefresh(&RefreshEvent{
		At: base, Instrument: "TSE", Kind: KindBulk, Reason: "absent", Source: "mock",
		Rows: 120, Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, r.RecordRefresh(&RefreshEvent{
		At: base.Add(time.Minute), Instrument: "TSE", Kind: KindSnapshot, Source: "mock",
		Rows: 121, Err: errors.New("timeout").Error(),
	}))
	require.NoError(t, r.RecordRefresh(&RefreshEvent{At: base, Instrument: "OTC", Kind: KindBulk}))

	got, err := r.RecentRefreshes("TSE", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, KindSnapshot, got[0].Kind)
	assert.Equal(t, "timeout", got[0].Err)
	assert.Equal(t, 120, got[1].Rows)
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.True(t, got[1].At.Equal(base))

	got, err = r.RecentRefreshes("TSE", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteRecorder_Prewarm(t *testing.T) {
	r := openTestRecorder(t)
	run := &PrewarmRun{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Results: []PrewarmResult{
			{Instrument: "TSE", OK: true, Rows: 120},
			{Instrument: "OTC", OK: false, Err: "no data"},
		},
	}
	assert.Equal(t, 1, run.Failed())
	require.NoError(t, r.RecordPrewarm(run))

	var failed, results int
	require.NoError(t, r.db.QueryRow(`SELECT failed FROM prewarm_runs WHERE run_id = ?`, run.RunID).Scan(&failed))
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM prewarm_results WHERE run_id = ?`, run.RunID).Scan(&results))
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, results)

	assert.Error(t, r.RecordPrewarm(run), "duplicate run id")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRefresh(&RefreshEvent{}))
	got, err := r.RecentRefreshes("TSE", 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
