package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Runner feeds a fixed worker pool from one bounded queue. Enqueue blocks
// while the queue is full, which is the only backpressure the intake has.
type Runner struct {
	service *Service
	queue   chan Event
	workers int
	logger  zerolog.Logger

	wg sync.WaitGroup
}

func NewRunner(service *Service, queueSize, workers int, logger zerolog.Logger) *Runner {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		service: service,
		queue:   make(chan Event, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue hands an event to the pool, blocking while the queue is at
// capacity. Returns false once ctx is done.
func (r *Runner) Enqueue(ctx context.Context, event Event) bool {
	select {
	case r.queue <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start launches the workers. They run until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}
	r.logger.Info().Int("workers", r.workers).Int("queue_size", cap(r.queue)).Msg("worker pool started")
}

// Wait blocks until every worker has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-r.queue:
			// A failed event is logged and dropped here; its record stays
			// unprocessed and redelivery retries it. Workers never die.
			if err := r.service.HandleEvent(ctx, event); err != nil {
				r.logger.Error().
					Err(err).
					Int("worker", id).
					Str("source", event.SourceName).
					Int64("message_id", event.MessageID).
					Msg("event processing failed")
			}
		}
	}
}
