package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AbdulWasayUl/go-weather-chat/internal/channels"
	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/db"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/internal/scheduler"
	"github.com/AbdulWasayUl/go-weather-chat/internal/workpool"
	"github.com/AbdulWasayUl/go-weather-chat/services/weather"
)

func main() {
	logger.Init()
	cfg := config.Load()
	if err := cfg.Validate(true, false); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongoDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := db.DisconnectMongoDB(context.Background(), client); err != nil {
			logger.Error("Error disconnecting MongoDB: %v", err)
		}
	}()

	if err := db.RunMigrations(ctx, client, cfg); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	weatherSvc := weather.NewService(cfg)

	sch, err := scheduler.New(cfg.RefreshInterval)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	if err := run(ctx, sch, client, cfg.WorkerCount, []scheduler.SchedulableService{weatherSvc}); err != nil {
		log.Fatalf("Failed to start scheduler job: %v", err)
	}
}

// run starts the workers and the refresh schedule, kicks off the startup
// collection and blocks until ctx is cancelled. Shutdown waits for every
// submitted request; requests still in flight see the cancelled context.
func run(ctx context.Context, sch *scheduler.Scheduler, client *mongo.Client, workers int, services []scheduler.SchedulableService) error {
	chans := channels.New()

	wp := workpool.New(chans, workers)
	wp.Start(ctx)
	defer wp.Stop()

	if err := sch.StartJob(ctx, client, chans, services); err != nil {
		return err
	}

	logger.Info("Executing immediate startup fetch; refreshing every %s.", sch.Interval)
	startup := make(chan struct{})
	go func() {
		defer close(startup)
		sch.RunImmediateJob(ctx, client, chans, services)
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal. Shutting down gracefully...")

	sch.Stop()
	<-startup

	logger.Info("Waiting for pending worker jobs to finish...")
	chans.WG.Wait()
	logger.Info("All worker jobs finished. Shutdown complete.")
	return nil
}
