package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/postforge/api/api"
	"github.com/postforge/api/services/cron"
)

// SetupAndRunServer wires the container into an API server and blocks on it.
// setupRoutes is injected by main so app does not import the router package.
func SetupAndRunServer(setupRoutes func(*fiber.App, *Container)) error {
	container, err := BuildContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	// Cron runs inside the API process unless disabled; the scheduler's
	// slot index keeps multi-instance deployments safe.
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		cronManager = cron.NewCronManager(container.DB, container.Scheduler)
		if err := cronManager.Start(); err != nil {
			fmt.Printf("Warning: failed to start cron jobs: %v\n", err)
			cronManager = nil
		}
	}
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
	}()

	// Embedded worker for single-process deployments; production runs the
	// dedicated worker binary instead.
	if os.Getenv("WORKER_EMBEDDED") == "true" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go container.Worker.Run(ctx)
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", container.Env.PORT))
	setupRoutes(server.GetEngine(), container)

	return server.Run()
}
