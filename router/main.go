package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/postforge/api/app"
	"github.com/postforge/api/handlers"
	auth_handlers "github.com/postforge/api/handlers/auth"
	job_handlers "github.com/postforge/api/handlers/job"
	schedule_handlers "github.com/postforge/api/handlers/schedule"
	task_handlers "github.com/postforge/api/handlers/task"
	tenant_handlers "github.com/postforge/api/handlers/tenant"
	"github.com/postforge/api/utils/auth"
	"github.com/postforge/api/utils/middleware"
)

func SetupRoutes(fiberApp *fiber.App, c *app.Container) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "postforge-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	var bruteForceProtection *middleware.BruteForceProtection
	if c.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(c.Cache)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, c.DB)

	authHandler := auth_handlers.NewAuthHandler(c.DB, jwtManager, bruteForceProtection)
	tenantHandler := tenant_handlers.NewTenantHandler(c.DB)
	taskHandler := task_handlers.NewTaskHandler(c.Store, c.Tasks, c.Publisher)
	jobHandler := job_handlers.NewJobHandler(c.Store, c.Jobs, c.Tasks)
	scheduleHandler := schedule_handlers.NewScheduleHandler(c.Store, c.Scheduler)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	middleware.SetupSecurity(fiberApp, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	fiberApp.Get("/ping", handlers.HandleCheckHealth(c.Store))

	// API v1 group
	api := fiberApp.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)

	// Tenant directory (admin manages, editors read)
	tenants := api.Group("/tenants", authMiddleware.Required())
	tenants.Get("/", tenantHandler.ListTenants)
	tenants.Get("/:id", tenantHandler.GetTenant)
	tenants.Post("/", authMiddleware.RequireAdmin(), tenantHandler.CreateTenant)
	tenants.Put("/:id", authMiddleware.RequireAdmin(), tenantHandler.UpdateTenant)

	// Schedule rules and logs, nested under tenants
	tenants.Get("/:id/schedule-rules", scheduleHandler.ListRules)
	tenants.Post("/:id/schedule-rules", authMiddleware.RequireAdmin(), scheduleHandler.CreateRule)
	tenants.Get("/:id/schedule-logs", scheduleHandler.ListLogs)
	tenants.Post("/:id/schedule-tick", authMiddleware.RequireAdmin(), scheduleHandler.RunTick)

	rules := api.Group("/schedule-rules", authMiddleware.Required())
	rules.Put("/:id", authMiddleware.RequireAdmin(), scheduleHandler.UpdateRule)
	rules.Delete("/:id", authMiddleware.RequireAdmin(), scheduleHandler.DeleteRule)

	// Tasks: creation, inspection and the approval state machine
	tasks := api.Group("/tasks", authMiddleware.Required())
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Delete("/:id", taskHandler.DeleteTask)
	tasks.Get("/:id/jobs", jobHandler.ListByTask)

	tasks.Post("/:id/submit", taskHandler.Submit)
	tasks.Post("/:id/approve", taskHandler.Approve)
	tasks.Post("/:id/disapprove", taskHandler.Disapprove)
	tasks.Post("/:id/override", taskHandler.OverrideProcessing)
	tasks.Post("/:id/confirm", taskHandler.Confirm)
	tasks.Post("/:id/reject", taskHandler.Reject)
	tasks.Post("/:id/mark-failed", taskHandler.MarkFailed)
	tasks.Post("/:id/publish", taskHandler.Publish)

	// Jobs
	jobs := api.Group("/jobs", authMiddleware.Required())
	jobs.Get("/:id", jobHandler.GetJob)
	jobs.Post("/:id/process", jobHandler.Process)
}
