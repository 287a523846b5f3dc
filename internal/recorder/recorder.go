package recorder

import "time"

// Refresh kinds.
const (
	KindBulk     = "bulk"
	KindSnapshot = "snapshot"
)

// RefreshEvent records one upstream fetch made by the cache.
type RefreshEvent struct {
	At         time.Time
	Instrument string
	Kind       string // KindBulk or KindSnapshot
	Reason     string // why the refresh ran, e.g. "interval_elapsed"
	Source     string // fetcher name
	Rows       int    // rows in the series afterwards
	Dropped    int    // rows discarded by the merge
	Duration   time.Duration
	Err        string // empty on success
}

// PrewarmResult is the outcome for one instrument in a pre-warm run.
type PrewarmResult struct {
	Instrument string
	OK         bool
	Rows       int
	Stale      bool
	Duration   time.Duration
	Err        string
}

// PrewarmRun is one forced refresh over all configured instruments.
type PrewarmRun struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []PrewarmResult
}

// Failed counts the instruments that did not refresh.
func (r *PrewarmRun) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK {
			n++
		}
	}
	return n
}

// Recorder persists the refresh audit trail.
type Recorder interface {
	RecordRefresh(evt *RefreshEvent) error
	RecordPrewarm(run *PrewarmRun) error
	RecentRefreshes(instrument string, limit int) ([]RefreshEvent, error)
	Close() error
}
