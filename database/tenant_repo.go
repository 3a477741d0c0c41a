package database

import (
	"context"
	"time"

	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
	"gorm.io/gorm"
)

func (s *GORMStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (s *GORMStore) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListTenants returns tenants oldest first, optionally only active ones.
func (s *GORMStore) ListTenants(ctx context.Context, activeOnly bool) ([]model.Tenant, error) {
	q := s.db.WithContext(ctx).Model(&model.Tenant{}).Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var tenants []model.Tenant
	if err := q.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *GORMStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	return s.db.WithContext(ctx).Create(tenant).Error
}

func (s *GORMStore) SaveTenant(ctx context.Context, tenant *model.Tenant) error {
	tenant.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(tenant).Error
}

// InTransaction runs fn against a tx-scoped store so multi-record transitions
// (approval cascades, schedule log claims) commit or roll back as one unit.
func (s *GORMStore) InTransaction(ctx context.Context, fn func(services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}
