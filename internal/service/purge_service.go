package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/recurring-todo-api/pkg/jobs"
)

const purgeJobType = "series_purge"

// cronParser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type seriesPurger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeServiceConfig controls the purge schedule.
type PurgeServiceConfig struct {
	Schedule  string
	Retention time.Duration
	Retries   int
}

// PurgeService hard deletes series that stayed soft deleted beyond the retention period.
// A cron schedule enqueues purge jobs onto a worker queue that retries failures.
type PurgeService struct {
	repo      seriesPurger
	metrics   *MetricsService
	logger    *zap.Logger
	queue     *jobs.Queue
	scheduler *cron.Cron
	cfg       PurgeServiceConfig
	now       func() time.Time
}

// NewPurgeService validates the schedule and builds the service.
func NewPurgeService(repo seriesPurger, metrics *MetricsService, logger *zap.Logger, cfg PurgeServiceConfig) (*PurgeService, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &PurgeService{
		repo:      repo,
		metrics:   metrics,
		logger:    logger,
		scheduler: cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC)),
		cfg:       cfg,
		now:       time.Now,
	}
	svc.queue = jobs.NewQueue("purge", svc.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: cfg.Retries,
		RetryDelay: 30 * time.Second,
		JobTimeout: 5 * time.Minute,
		Logger:     logger,
		OnResult: func(job jobs.Job, err error) {
			if err != nil {
				logger.Error("series purge failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			}
		},
	})
	return svc, nil
}

// Start launches the worker queue and the cron schedule.
func (s *PurgeService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	if _, err := s.scheduler.AddFunc(s.cfg.Schedule, func() {
		if err := s.Trigger(); err != nil {
			s.logger.Warn("purge not scheduled", zap.Error(err))
		}
	}); err != nil {
		s.queue.Stop()
		return fmt.Errorf("schedule purge: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("purge scheduled", zap.String("schedule", s.cfg.Schedule), zap.Duration("retention", s.cfg.Retention))
	return nil
}

// Stop halts the schedule, waits for a running trigger and drains the queue workers.
func (s *PurgeService) Stop() {
	<-s.scheduler.Stop().Done()
	s.queue.Stop()
}

// Trigger enqueues a purge run immediately.
func (s *PurgeService) Trigger() error {
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: purgeJobType})
}

// Run performs a purge synchronously and reports how many series were removed.
func (s *PurgeService) Run(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	removed, err := s.repo.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.ObservePurge(removed)
	s.logger.Info("series purged", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	return removed, nil
}

func (s *PurgeService) handle(ctx context.Context, job jobs.Job) error {
	if job.Type != purgeJobType {
		return fmt.Errorf("unexpected job type %s", job.Type)
	}
	_, err := s.Run(ctx)
	return err
}
