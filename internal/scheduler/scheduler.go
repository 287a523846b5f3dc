package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"TaiexCache/internal/analysis"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/model"
	"TaiexCache/internal/notifier"
	"TaiexCache/internal/recorder"
)

// SeriesSource is the part of the cache the pre-warmer drives.
type SeriesSource interface {
	Get(ctx context.Context, instrument string, force bool) (*model.Series, error)
}

// Prewarmer force-refreshes every configured instrument so the first
// request of the day is served from a warm cache.
type Prewarmer struct {
	Source      SeriesSource
	Instruments []string
	Recorder    recorder.Recorder
	Notifier    notifier.Notifier // optional
	Now         func() time.Time
}

// NewPrewarmer creates a Prewarmer. A nil recorder is replaced by a no-op.
func NewPrewarmer(src SeriesSource, instruments []string, rec recorder.Recorder, n notifier.Notifier) *Prewarmer {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Prewarmer{
		Source:      src,
		Instruments: instruments,
		Recorder:    rec,
		Notifier:    n,
		Now:         time.Now,
	}
}

// Run refreshes each instrument in turn. It returns the run summary; a
// failing instrument does not stop the others.
func (p *Prewarmer) Run(ctx context.Context) *recorder.PrewarmRun {
	run := &recorder.PrewarmRun{
		RunID:     uuid.NewString(),
		StartedAt: p.Now(),
	}
	logger.Info("prewarm started",
		logger.String("run_id", run.RunID),
		logger.Strings("instruments", p.Instruments))

	analyses := make(map[string]*analysis.Result, len(p.Instruments))
	for _, inst := range p.Instruments {
		start := p.Now()
		s, err := p.Source.Get(ctx, inst, true)
		res := recorder.PrewarmResult{Instrument: inst, Duration: p.Now().Sub(start)}
		if err != nil {
			res.Err = err.Error()
			logger.Error("prewarm failed", logger.Instrument(inst), logger.ErrorField(err))
			run.Results = append(run.Results, res)
			continue
		}
		res.Rows = s.Len()
		res.Stale = s.Stale
		// A refresh that fell back to stale data is not a success.
		res.OK = !s.Stale
		if s.Stale {
			res.Err = "refresh failed, served cached data"
		}
		if a, err := analysis.Analyze(s); err == nil {
			analyses[inst] = a
		}
		run.Results = append(run.Results, res)
		logger.Info("prewarmed",
			logger.Instrument(inst),
			logger.Int("rows", res.Rows),
			logger.Bool("stale", res.Stale),
			logger.Duration("took", res.Duration))
	}
	run.FinishedAt = p.Now()

	if err := p.Recorder.RecordPrewarm(run); err != nil {
		logger.Error("record prewarm", logger.ErrorField(err))
	}
	if p.Notifier != nil {
		if err := p.Notifier.Send(ctx, notifier.FormatPrewarmReport(run, analyses)); err != nil {
			logger.Warn("prewarm report not delivered", logger.ErrorField(err))
		}
	}
	logger.Info("prewarm finished",
		logger.String("run_id", run.RunID),
		logger.Int("failed", run.Failed()),
		logger.Duration("took", run.FinishedAt.Sub(run.StartedAt)))
	return run
}

// Scheduler runs the pre-warmer on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Prewarmer *Prewarmer
	Ctx       context.Context
}

// NewScheduler creates a Scheduler whose cron expressions carry a seconds
// field and are evaluated in loc.
func NewScheduler(ctx context.Context, p *Prewarmer, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Prewarmer: p,
		Ctx:       ctx,
	}
}

// Register adds the pre-warm task.
func (s *Scheduler) Register(prewarmCron string) error {
	if _, err := s.Cron.AddFunc(prewarmCron, s.prewarmTask); err != nil {
		return fmt.Errorf("register prewarm task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started", logger.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// RunNow executes the pre-warm task immediately.
func (s *Scheduler) RunNow() *recorder.PrewarmRun {
	return s.Prewarmer.Run(s.Ctx)
}

func (s *Scheduler) prewarmTask() {
	if s.Ctx.Err() != nil {
		return
	}
	s.Prewarmer.Run(s.Ctx)
}
