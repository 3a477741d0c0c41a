package tenant

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/postforge/api/model"
	"github.com/postforge/api/utils/response"
	"github.com/postforge/api/utils/validation"
)

// TenantHandler handles tenant directory requests
type TenantHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateTenantRequest represents the request body for creating a tenant
type CreateTenantRequest struct {
	Slug string                 `json:"slug" validate:"required,min=2,max=100"`
	Name string                 `json:"name" validate:"required,min=2,max=255"`
	Note string                 `json:"note" validate:"omitempty,max=2000"`
	Env  map[string]interface{} `json:"env" validate:"omitempty"`
}

// UpdateTenantRequest represents the request body for updating a tenant
type UpdateTenantRequest struct {
	Name     string                 `json:"name" validate:"omitempty,min=2,max=255"`
	Note     *string                `json:"note" validate:"omitempty,max=2000"`
	Env      map[string]interface{} `json:"env" validate:"omitempty"`
	IsActive *bool                  `json:"is_active" validate:"omitempty"`
}

// ListTenants handles GET /api/v1/tenants
func (h *TenantHandler) ListTenants(c *fiber.Ctx) error {
	query := h.db.Model(&model.Tenant{})

	if isActive := c.Query("is_active", ""); isActive == "true" {
		query = query.Where("is_active = ?", true)
	} else if isActive == "false" {
		query = query.Where("is_active = ?", false)
	}

	var tenants []model.Tenant
	if err := query.Order("slug ASC").Find(&tenants).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch tenants")
	}
	return response.Success(c, tenants)
}

// GetTenant handles GET /api/v1/tenants/:id
func (h *TenantHandler) GetTenant(c *fiber.Ctx) error {
	id := c.Params("id")

	var tenant model.Tenant
	if err := h.db.Where("id = ?", id).First(&tenant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Tenant not found")
		}
		return response.InternalServerError(c, "Failed to fetch tenant")
	}
	return response.Success(c, tenant)
}

// CreateTenant handles POST /api/v1/tenants
func (h *TenantHandler) CreateTenant(c *fiber.Ctx) error {
	var req CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Slug = validation.SanitizeString(req.Slug)
	req.Name = validation.SanitizeString(req.Name)

	var existing model.Tenant
	if err := h.db.Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		return response.Conflict(c, "Tenant with this slug already exists")
	}

	tenant := model.Tenant{
		ID:       uuid.NewString(),
		Slug:     req.Slug,
		Name:     req.Name,
		Note:     req.Note,
		IsActive: true,
	}
	if req.Env != nil {
		tenant.Env = datatypes.JSONMap(req.Env)
	}
	if err := h.db.Create(&tenant).Error; err != nil {
		return response.InternalServerError(c, "Failed to create tenant")
	}
	return response.Created(c, tenant)
}

// UpdateTenant handles PUT /api/v1/tenants/:id
func (h *TenantHandler) UpdateTenant(c *fiber.Ctx) error {
	id := c.Params("id")

	var tenant model.Tenant
	if err := h.db.Where("id = ?", id).First(&tenant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Tenant not found")
		}
		return response.InternalServerError(c, "Failed to fetch tenant")
	}

	var req UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Name != "" {
		tenant.Name = validation.SanitizeString(req.Name)
	}
	if req.Note != nil {
		tenant.Note = *req.Note
	}
	if req.Env != nil {
		tenant.Env = datatypes.JSONMap(req.Env)
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	if err := h.db.Save(&tenant).Error; err != nil {
		return response.InternalServerError(c, "Failed to update tenant")
	}
	return response.Success(c, tenant)
}
