package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AbdulWasayUl/go-weather-chat/internal/channels"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
)

type SchedulableService interface {
	RunBatchJob(ctx context.Context, client *mongo.Client, chans *channels.Channels) error
}

type Scheduler struct {
	Cron     *gocron.Scheduler
	Interval time.Duration
}

func New(interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		Cron:     s,
		Interval: interval,
	}, nil
}

// StartJob registers the refresh job without an immediate first run; use
// RunImmediateJob for that.
func (s *Scheduler) StartJob(ctx context.Context, client *mongo.Client, chans *channels.Channels, services []SchedulableService) error {
	_, err := s.Cron.Every(s.Interval).WaitForSchedule().Do(func() {
		s.runAllJobs(ctx, client, chans, services)
	})
	if err != nil {
		logger.Error("Failed to schedule job: %v", err)
		return err
	}

	s.Cron.StartAsync()
	return nil
}

func (s *Scheduler) runAllJobs(ctx context.Context, client *mongo.Client, chans *channels.Channels, services []SchedulableService) {
	logger.Info("--- Refresh Job Started ---")
	defer logger.Info("--- Refresh Job Finished ---")

	for _, service := range services {
		if err := service.RunBatchJob(ctx, client, chans); err != nil {
			logger.Error("Error running batch job for service: %v", err)
		}
	}

	logger.Info("Waiting for all submitted jobs to complete...")
	chans.WG.Wait()
	logger.Info("All jobs completed.")
}

func (s *Scheduler) RunImmediateJob(ctx context.Context, client *mongo.Client, chans *channels.Channels, services []SchedulableService) {
	logger.Info("--- Immediate Fetch Job Started ---")
	defer logger.Info("--- Immediate Fetch Job Finished ---")

	s.runAllJobs(ctx, client, chans, services)
}

func (s *Scheduler) Stop() {
	s.Cron.Stop()
}
