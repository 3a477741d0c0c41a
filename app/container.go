package app

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/postforge/api/config"
	"github.com/postforge/api/database"
	"github.com/postforge/api/services"
	"github.com/postforge/api/services/discord"
	"github.com/postforge/api/services/instagram"
	"github.com/postforge/api/services/openai"
	"github.com/postforge/api/services/render"
	"github.com/postforge/api/services/spaces"
	"github.com/postforge/api/utils/cache"
)

// Container holds the fully wired application services. The API server, the
// worker and the scheduler binaries all build one and pick what they need.
type Container struct {
	Env       *config.EnvironmentVariable
	Store     *database.GORMStore
	DB        *gorm.DB
	Cache     *cache.RedisCache // nil when redis is unreachable
	Tasks     *services.TaskService
	Jobs      *services.JobService
	Publisher *services.PublisherService
	Scheduler *services.SchedulerService
	Worker    *services.Worker
}

// BuildContainer loads config, connects the stores and wires every service.
func BuildContainer() (*Container, error) {
	if err := config.LoadENV(); err != nil {
		return nil, err
	}
	env, err := config.Get()
	if err != nil {
		return nil, err
	}

	store, err := database.StartGORM()
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return nil, fmt.Errorf("unexpected database handle type")
	}

	// Redis is optional: without it job claiming falls back to
	// single-worker mode and brute force protection is off.
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Printf("Warning: redis unavailable: %v", err)
		redisCache = nil
	}

	notifier := discord.NewNotifier()

	var uploader services.Uploader
	var assets services.AssetRemover
	if env.SPACES_ACCESS_KEY != "" && env.SPACES_SECRET_KEY != "" {
		spacesClient, err := spaces.NewClient(spaces.Config{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
		})
		if err != nil {
			return nil, fmt.Errorf("spaces client: %w", err)
		}
		uploader = spacesClient
		assets = spacesClient
	}

	openaiClient := openai.NewClient()
	generators := map[string]services.Generator{
		openai.GeneratorDalle:      openai.NewDalleGenerator(openaiClient, env.OUTPUT_DIR),
		openai.GeneratorGPTImage15: openai.NewGPTImage15Generator(openaiClient, env.OUTPUT_DIR),
		render.GeneratorPillow:     render.NewGenerator(os.Getenv("RENDER_BACKGROUND"), env.OUTPUT_DIR),
	}

	tasks := services.NewTaskService(store, services.NewTemplateRegistry(), assets)
	jobs, err := services.NewJobService(store, generators, uploader)
	if err != nil {
		return nil, err
	}
	publisher := services.NewPublisherService(store, instagram.NewClient(), notifier)

	location, err := time.LoadLocation(env.SCHEDULER_TIMEZONE)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", env.SCHEDULER_TIMEZONE, err)
	}
	actions := map[string]services.Action{
		services.ActionTestLog:          services.NewTestLogAction(),
		services.ActionPublishInstagram: services.NewPublishAction(publisher),
	}
	scheduler, err := services.NewSchedulerService(store, actions, notifier, location)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	worker := services.NewWorker(store, jobs, tasks, redisCache, env.WORKER_CHECK_INTERVAL, workerID)

	return &Container{
		Env:       env,
		Store:     store,
		DB:        db,
		Cache:     redisCache,
		Tasks:     tasks,
		Jobs:      jobs,
		Publisher: publisher,
		Scheduler: scheduler,
		Worker:    worker,
	}, nil
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
	c.Store.Close()
}
