// Package jobsvc runs the background jobs of the api.
package jobsvc

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/level"
)

// LevelChecker is the part of the levels service the jobs need.
type LevelChecker interface {
	CheckIntegrity(ctx context.Context) error
	WarmCache(ctx context.Context) error
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	levels    LevelChecker
	logger    core.Logger
	interval  time.Duration
	timeout   time.Duration
}

func NewScheduler(levels LevelChecker, logger core.Logger, conf *core.Config) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		levels:    levels,
		logger:    logger,
		interval:  conf.Jobs.LevelCheckInterval,
		timeout:   time.Minute,
	}
}

// Start schedules the jobs and runs them in the background; the first run is immediate.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.CheckLevels); err != nil {
		return errors.Wrap(err, "scheduling levels check")
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler; running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckLevels reports a broken levels ladder and refreshes the levels cache.
func (s *Scheduler) CheckLevels() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.levels.CheckIntegrity(ctx); err != nil {
		var ierr *level.IntegrityError
		if errors.As(err, &ierr) {
			s.logger.Warn("levels are not contiguous", map[string]interface{}{"issues": ierr.Issues})
		} else {
			s.logger.Error("checking levels", err)
		}
	}
	if err := s.levels.WarmCache(ctx); err != nil {
		s.logger.Error("warming levels cache", err)
	}
}
