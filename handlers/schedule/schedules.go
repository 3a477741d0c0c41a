package schedule

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
	"github.com/postforge/api/utils/response"
	"github.com/postforge/api/utils/validation"
)

// ScheduleHandler handles schedule rule and log requests
type ScheduleHandler struct {
	store     services.Store
	scheduler *services.SchedulerService
	validator *validation.Validator
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(store services.Store, scheduler *services.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{
		store:     store,
		scheduler: scheduler,
		validator: validation.NewValidator(),
	}
}

// RuleRequest represents the request body for creating or updating a rule
type RuleRequest struct {
	Action string                 `json:"action" validate:"required,min=2,max=100"`
	Note   string                 `json:"note" validate:"omitempty,max=2000"`
	Times  map[string]interface{} `json:"times" validate:"required"`
}

// ListRules handles GET /api/v1/tenants/:id/schedule-rules
func (h *ScheduleHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.store.RulesForTenant(c.Context(), c.Params("id"))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch schedule rules")
	}
	return response.Success(c, rules)
}

// CreateRule handles POST /api/v1/tenants/:id/schedule-rules
func (h *ScheduleHandler) CreateRule(c *fiber.Ctx) error {
	tenant, err := h.store.GetTenant(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Tenant not found")
		}
		return response.InternalServerError(c, "Failed to fetch tenant")
	}

	var req RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	rule := &model.ScheduleRule{
		ID:       uuid.NewString(),
		TenantID: tenant.ID,
		Action:   req.Action,
		Note:     req.Note,
		Times:    datatypes.JSONMap(req.Times),
	}
	// The times document and the action name are validated before the rule
	// is stored; a bad rule would otherwise fail silently on every tick.
	if _, err := rule.ParseTimes(); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if !h.knownAction(req.Action) {
		return response.BadRequest(c, "Unknown action: "+req.Action)
	}

	if err := h.store.CreateRule(c.Context(), rule); err != nil {
		return response.InternalServerError(c, "Failed to create schedule rule")
	}
	return response.Created(c, rule)
}

// UpdateRule handles PUT /api/v1/schedule-rules/:id
func (h *ScheduleHandler) UpdateRule(c *fiber.Ctx) error {
	rule, err := h.store.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Schedule rule not found")
		}
		return response.InternalServerError(c, "Failed to fetch schedule rule")
	}

	var req RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	rule.Action = req.Action
	rule.Note = req.Note
	rule.Times = datatypes.JSONMap(req.Times)
	if _, err := rule.ParseTimes(); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if !h.knownAction(req.Action) {
		return response.BadRequest(c, "Unknown action: "+req.Action)
	}

	if err := h.store.SaveRule(c.Context(), rule); err != nil {
		return response.InternalServerError(c, "Failed to update schedule rule")
	}
	return response.Success(c, rule)
}

// DeleteRule handles DELETE /api/v1/schedule-rules/:id
func (h *ScheduleHandler) DeleteRule(c *fiber.Ctx) error {
	if _, err := h.store.GetRule(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Schedule rule not found")
		}
		return response.InternalServerError(c, "Failed to fetch schedule rule")
	}
	if err := h.store.DeleteRule(c.Context(), c.Params("id")); err != nil {
		return response.InternalServerError(c, "Failed to delete schedule rule")
	}
	return response.NoContent(c)
}

// ListLogs handles GET /api/v1/tenants/:id/schedule-logs
func (h *ScheduleHandler) ListLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	logs, err := h.store.LogsForTenant(c.Context(), c.Params("id"), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch schedule logs")
	}
	return response.Success(c, logs)
}

// RunTick handles POST /api/v1/tenants/:id/schedule-tick, a manual scheduler
// pass for one tenant. Safe to call repeatedly: executed slots are skipped.
func (h *ScheduleHandler) RunTick(c *fiber.Ctx) error {
	tenant, err := h.store.GetTenant(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Tenant not found")
		}
		return response.InternalServerError(c, "Failed to fetch tenant")
	}
	if err := h.scheduler.RunTick(c.Context(), tenant); err != nil {
		return response.InternalServerError(c, "Scheduler tick failed")
	}
	return response.Success(c, fiber.Map{
		"timeslot": h.scheduler.CurrentTimeslot(),
	})
}

func (h *ScheduleHandler) knownAction(name string) bool {
	for _, known := range h.scheduler.ActionNames() {
		if known == name {
			return true
		}
	}
	return false
}
