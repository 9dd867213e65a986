package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// PostJobName is the name AddPostJob registers under.
const PostJobName = "post"

// DefaultJobTimeout bounds a single run.
const DefaultJobTimeout = 30 * time.Minute

// Scheduler manages periodic tasks. A job still running when its next
// activation comes up is skipped for that activation.
type Scheduler struct {
	cron       *cron.Cron
	jobs       map[string]cron.EntryID
	timezone   *time.Location
	logger     *zap.Logger
	jobTimeout time.Duration
	baseCtx    context.Context
}

// New creates a new scheduler with the given timezone
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:       c,
		jobs:       make(map[string]cron.EntryID),
		timezone:   loc,
		logger:     logger,
		jobTimeout: DefaultJobTimeout,
		baseCtx:    context.Background(),
	}, nil
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// AddJob adds a job with a cron schedule
// schedule format: "0 9 * * *" (at 9:00 AM daily)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runJob(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added job", zap.String("job", name), zap.String("schedule", schedule))

	return nil
}

// AddPostJob adds the posting job
func (s *Scheduler) AddPostJob(schedule string, job Job) error {
	return s.AddJob(PostJobName, schedule, job)
}

func (s *Scheduler) runJob(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
	defer cancel()

	s.logger.Info("starting job", zap.String("job", name))
	start := time.Now()

	if err := job(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
	} else {
		s.logger.Info("job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish. Jobs see ctx, so cancelling it also aborts them.
func (s *Scheduler) Run(ctx context.Context) {
	s.baseCtx = ctx
	s.logger.Info("starting scheduler", zap.String("timezone", s.timezone.String()))
	s.cron.Start()

	for _, info := range s.ListJobs() {
		s.logger.Info("next run", zap.String("job", info.Name), zap.Time("at", info.NextRun))
	}

	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		if !entry.Valid() {
			continue
		}
		next := entry.Next
		if next.IsZero() {
			// Not started yet; compute from the schedule.
			next = entry.Schedule.Next(time.Now().In(s.timezone))
		}
		infos = append(infos, JobInfo{
			Name:    name,
			NextRun: next,
			LastRun: entry.Prev,
		})
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
