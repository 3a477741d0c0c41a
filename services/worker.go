package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/postforge/api/utils/cache"
	"gorm.io/gorm"
)

// jobLockTTL bounds how long a claimed job stays locked if the worker dies
// mid-call. Generator calls are well under this.
const jobLockTTL = 10 * time.Minute

// Worker is the poll loop that drains processable jobs. One job per tick:
// generation calls are slow and rate-limited, so there is no point batching.
// Multiple workers coordinate through a redis lease per job id.
type Worker struct {
	store    Store
	jobs     *JobService
	tasks    *TaskService
	cache    *cache.RedisCache
	interval time.Duration
	workerID string
}

func NewWorker(store Store, jobs *JobService, tasks *TaskService, redisCache *cache.RedisCache, interval time.Duration, workerID string) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		store:    store,
		jobs:     jobs,
		tasks:    tasks,
		cache:    redisCache,
		interval: interval,
		workerID: workerID,
	}
}

// Run polls until ctx is cancelled. Errors from individual ticks are logged
// and the loop continues; only cancellation stops it.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[WORKER] %s started, checking every %s", w.workerID, w.interval)
	for {
		if err := w.Tick(ctx); err != nil {
			log.Printf("[WORKER] Tick failed: %v", err)
		}
		if !w.sleep(ctx) {
			log.Printf("[WORKER] %s shutting down", w.workerID)
			return
		}
	}
}

// Tick claims and processes at most one job. A tick with nothing to do is not
// an error.
func (w *Worker) Tick(ctx context.Context) error {
	job, err := w.store.NextProcessableJob(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find next job: %w", err)
	}

	claimed, release, err := w.claim(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	if !claimed {
		log.Printf("[WORKER] Job %s is held by another worker, skipping", job.ID)
		return nil
	}
	defer release()

	processed, err := w.jobs.ProcessJob(ctx, job.ID)
	if err != nil {
		// ErrNotProcessable means another worker got there between the
		// query and the lease; everything else is already recorded on
		// the job by ProcessJob.
		if errors.Is(err, ErrNotProcessable) {
			return nil
		}
		return err
	}

	advanced, err := w.tasks.AdvanceIfComplete(ctx, processed.TaskID)
	if err != nil {
		return fmt.Errorf("advance task %s: %w", processed.TaskID, err)
	}
	if advanced {
		log.Printf("[WORKER] Task %s is fully processed, awaiting confirmation", processed.TaskID)
	}
	return nil
}

// claim takes the redis lease for a job id. Without redis (single-worker
// deployments) the claim always succeeds.
func (w *Worker) claim(ctx context.Context, jobID string) (bool, func(), error) {
	if w.cache == nil {
		return true, func() {}, nil
	}
	key := "job:lock:" + jobID
	ok, err := w.cache.SetNX(ctx, key, w.workerID, jobLockTTL)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}
	release := func() {
		if err := w.cache.Delete(context.Background(), key); err != nil {
			log.Printf("[WORKER] Failed to release lock %s: %v", key, err)
		}
	}
	return true, release, nil
}

// sleep waits one interval in 1s steps so shutdown stays responsive. It
// reports false when ctx was cancelled.
func (w *Worker) sleep(ctx context.Context) bool {
	deadline := time.Now().Add(w.interval)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	return true
}
