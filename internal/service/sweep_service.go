package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/jobs"
)

type sweepRepository interface {
	ListStartEligible(ctx context.Context, now time.Time, limit int) ([]string, error)
	MarkStarted(ctx context.Context, ids []string) (int, error)
}

// SweepConfig tunes the periodic status sweep.
type SweepConfig struct {
	Interval  time.Duration
	BatchSize int
}

// SweepService advances NOT_STARTED enrollments to STARTED once their
// section's term has begun. Runs are idempotent: a row is only transitioned
// while still NOT_STARTED, so a repeat run with no newly-eligible rows
// processes zero. Failures are non-fatal; rows left behind are picked up on
// the next scheduled run.
type SweepService struct {
	repo    sweepRepository
	cfg     SweepConfig
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
	now     func() time.Time
}

// NewSweepService constructs SweepService. Metrics may be nil.
func NewSweepService(repo sweepRepository, cfg SweepConfig, metrics *MetricsService, logger *zap.Logger) *SweepService {
	if cfg.Interval <= 0 {
		cfg.Interval = 12 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SweepService{repo: repo, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
	s.queue = jobs.NewQueue("status-sweep", s.handleJob, jobs.QueueConfig{
		Workers: 1,
		Logger:  logger,
	})
	return s
}

// Run executes a single sweep pass and returns the number of enrollments
// transitioned.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	now := s.now().UTC()
	processed := 0
	for {
		ids, err := s.repo.ListStartEligible(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return processed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible enrollments")
		}
		if len(ids) == 0 {
			break
		}
		n, err := s.repo.MarkStarted(ctx, ids)
		if err != nil {
			return processed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition enrollments")
		}
		processed += n
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSweepProcessed(processed)
	}
	s.logger.Info("status sweep completed",
		zap.Int("processed", processed),
		zap.String("status", string(models.EnrollmentStatusStarted)))
	return processed, nil
}

// Start boots the single-worker queue and a ticker that enqueues a sweep job
// every interval. Intended for single-instance deployments; multi-node setups
// need an external lock before enabling the sweep on more than one node.
func (s *SweepService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.queue.Stop()
				return
			case <-ticker.C:
				job := jobs.Job{ID: uuid.NewString(), Type: "status-sweep"}
				if err := s.queue.Enqueue(job); err != nil {
					s.logger.Warn("failed to enqueue sweep", zap.Error(err))
				}
			}
		}
	}()
	s.logger.Sugar().Infow("status sweep scheduled", "interval", s.cfg.Interval.String())
}

func (s *SweepService) handleJob(ctx context.Context, _ jobs.Job) error {
	_, err := s.Run(ctx)
	return err
}
