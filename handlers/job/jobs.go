package job

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/postforge/api/services"
	"github.com/postforge/api/utils/response"
)

// JobHandler handles generation job requests
type JobHandler struct {
	store services.Store
	jobs  *services.JobService
	tasks *services.TaskService
}

// NewJobHandler creates a new job handler
func NewJobHandler(store services.Store, jobs *services.JobService, tasks *services.TaskService) *JobHandler {
	return &JobHandler{store: store, jobs: jobs, tasks: tasks}
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.store.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.InternalServerError(c, "Failed to fetch job")
	}
	return response.Success(c, job)
}

// ListByTask handles GET /api/v1/tasks/:id/jobs
func (h *JobHandler) ListByTask(c *fiber.Ctx) error {
	if _, err := h.store.GetTask(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return response.InternalServerError(c, "Failed to fetch task")
	}
	jobs, err := h.store.JobsByTask(c.Context(), c.Params("id"))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch jobs")
	}
	return response.Success(c, jobs)
}

// Process handles POST /api/v1/jobs/:id/process. It runs the generation
// synchronously; the usual path is the background worker, this endpoint
// exists for manual retries of jobs in the error state.
func (h *JobHandler) Process(c *fiber.Ctx) error {
	job, err := h.jobs.ProcessJob(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, services.ErrNotProcessable):
			return response.Conflict(c, err.Error())
		default:
			// Generation failed; the job holds the error detail.
			return response.ErrorWithDetails(c, fiber.StatusBadGateway,
				"Job processing failed", "GENERATION_FAILED", err.Error())
		}
	}

	// A manual run still advances the parent task when it was the last job.
	if _, err := h.tasks.AdvanceIfComplete(c.Context(), job.TaskID); err != nil {
		return response.InternalServerError(c, "Failed to advance task")
	}
	return response.Success(c, job)
}
