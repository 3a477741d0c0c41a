package main

import (
	"context"
	"log"
	"time"

	"github.com/postforge/api/app"
)

// One-shot scheduler pass over all active tenants, intended for cron or a
// Kubernetes CronJob. Rerunning within the same hour is a no-op thanks to the
// per-slot uniqueness in the schedule log.
func main() {
	container, err := app.BuildContainer()
	if err != nil {
		log.Fatalf("scheduler startup failed: %v", err)
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := container.Scheduler.RunAll(ctx); err != nil {
		log.Fatalf("scheduler pass failed: %v", err)
	}
	log.Printf("scheduler pass complete for slot %s", container.Scheduler.CurrentTimeslot())
}
