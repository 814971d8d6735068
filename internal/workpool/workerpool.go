package workpool

import (
	"context"
	"time"

	"github.com/AbdulWasayUl/go-weather-chat/internal/channels"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/models"
)

const requestTimeout = 30 * time.Second

type WorkerPool struct {
	WorkerCount int
	Channels    *channels.Channels
}

func New(channels *channels.Channels, workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		WorkerCount: workerCount,
		Channels:    channels,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.WorkerCount; i++ {
		go wp.worker(ctx, i)
	}
}

// worker drains the request channel until it is closed. Every request taken
// off the channel is marked done exactly once, whatever the outcome.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger.Info("Worker %d started.", id)
	for req := range wp.Channels.DataRequest {
		wp.process(ctx, id, req)
	}
	logger.Info("Worker %d stopped.", id)
}

func (wp *WorkerPool) process(ctx context.Context, id int, req models.DataRequest) {
	defer wp.Channels.WG.Done()

	opCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	logger.Info("[%s] Worker %d processing request for ID: %s", req.Service, id, req.ID)

	data, err := req.FetchFunc(opCtx, req.ID)
	if err != nil {
		logger.Error("[%s] Worker %d failed to fetch data for %s: %v", req.Service, id, req.ID, err)
		return
	}

	parsedData, err := req.ParseFunc(data)
	if err != nil {
		logger.Error("[%s] Worker %d failed to parse data for %s: %v", req.Service, id, req.ID, err)
		return
	}

	if err := req.StoreFunc(opCtx, parsedData); err != nil {
		logger.Error("[%s] Worker %d failed to store data for %s: %v", req.Service, id, req.ID, err)
		return
	}

	logger.Info("[%s] Worker %d successfully completed request for ID: %s", req.Service, id, req.ID)
}

func (wp *WorkerPool) Stop() {
	close(wp.Channels.DataRequest)
}
