package task

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
	"github.com/postforge/api/utils/response"
	"github.com/postforge/api/utils/validation"
)

// TaskHandler handles content task requests
type TaskHandler struct {
	store     services.Store
	tasks     *services.TaskService
	publisher *services.PublisherService
	validator *validation.Validator
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store services.Store, tasks *services.TaskService, publisher *services.PublisherService) *TaskHandler {
	return &TaskHandler{
		store:     store,
		tasks:     tasks,
		publisher: publisher,
		validator: validation.NewValidator(),
	}
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Template string `json:"template" validate:"required,min=2,max=100"`
}

// MarkFailedRequest carries the failure reason for the mark-failed override
type MarkFailedRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=2000"`
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	var tenantID *string
	if t := c.Query("tenant_id", ""); t != "" {
		tenantID = &t
	}
	var status *model.TaskStatus
	if s := c.Query("status", ""); s != "" {
		st := model.TaskStatus(s)
		status = &st
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	tasks, err := h.store.ListTasks(c.Context(), tenantID, status, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch tasks")
	}
	return response.Success(c, tasks)
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.store.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return h.taskError(c, err, "Failed to fetch task")
	}
	jobs, err := h.store.JobsByTask(c.Context(), task.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch jobs")
	}
	task.Jobs = jobs
	return response.Success(c, task)
}

// CreateTask handles POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	task, err := h.tasks.CreateFromTemplate(c.Context(), &req.TenantID, validation.SanitizeString(req.Name), req.Template)
	if err != nil {
		if errors.Is(err, services.ErrUnknownTemplate) {
			return response.BadRequest(c, "Unknown template: "+req.Template)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Tenant not found")
		}
		return response.InternalServerError(c, "Failed to create task")
	}
	return response.Created(c, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	if err := h.tasks.Delete(c.Context(), c.Params("id")); err != nil {
		return h.taskError(c, err, "Failed to delete task")
	}
	return response.NoContent(c)
}

// Submit handles POST /api/v1/tasks/:id/submit (draft -> pending_approval)
func (h *TaskHandler) Submit(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.SubmitForApproval)
}

// Approve handles POST /api/v1/tasks/:id/approve
// (pending_approval -> processing, jobs released to the worker)
func (h *TaskHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.ApproveForProcessing)
}

// Disapprove handles POST /api/v1/tasks/:id/disapprove
func (h *TaskHandler) Disapprove(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.Disapprove)
}

// OverrideProcessing handles POST /api/v1/tasks/:id/override
// (processing -> pending_confirmation without waiting for jobs)
func (h *TaskHandler) OverrideProcessing(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.OverrideProcessing)
}

// Confirm handles POST /api/v1/tasks/:id/confirm (pending_confirmation -> ready)
func (h *TaskHandler) Confirm(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.ApproveForPublication)
}

// Reject handles POST /api/v1/tasks/:id/reject
func (h *TaskHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.tasks.Reject)
}

// MarkFailed handles POST /api/v1/tasks/:id/mark-failed, the operator
// override that works from any state.
func (h *TaskHandler) MarkFailed(c *fiber.Ctx) error {
	var req MarkFailedRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "Invalid request body")
	}
	task, err := h.tasks.MarkFailed(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return h.taskError(c, err, "Failed to mark task failed")
	}
	return response.Success(c, task)
}

// Publish handles POST /api/v1/tasks/:id/publish
func (h *TaskHandler) Publish(c *fiber.Ctx) error {
	task, err := h.publisher.Publish(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPublishState):
			return response.Conflict(c, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			return response.NotFound(c, "Task not found")
		case errors.Is(err, services.ErrNoPublishableContent):
			return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
				"Task has no publishable content", "NO_CONTENT", err.Error())
		default:
			// The task is now FAILED; surface the platform error.
			return response.ErrorWithDetails(c, fiber.StatusBadGateway,
				"Publish attempt failed", "PUBLISH_FAILED", err.Error())
		}
	}
	return response.Success(c, task)
}

func (h *TaskHandler) transition(c *fiber.Ctx, op func(ctx context.Context, id string) (*model.Task, error)) error {
	task, err := op(c.Context(), c.Params("id"))
	if err != nil {
		return h.taskError(c, err, "Failed to update task")
	}
	return response.Success(c, task)
}

func (h *TaskHandler) taskError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrInvalidStateTransition):
		return response.Conflict(c, err.Error())
	default:
		return response.InternalServerError(c, fallback)
	}
}
