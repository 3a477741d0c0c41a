package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/postforge/api/app"
)

// Standalone job worker. Several instances may run at once; the redis lease
// keeps them off each other's jobs.
func main() {
	container, err := app.BuildContainer()
	if err != nil {
		log.Fatalf("worker startup failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container.Worker.Run(ctx)
}
