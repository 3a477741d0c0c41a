package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/postforge/api/app"
	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
)

// Seeds a demo tenant with a schedule rule and one task so a fresh
// environment has something to click through.
func main() {
	container, err := app.BuildContainer()
	if err != nil {
		log.Fatalf("seed startup failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	store := container.Store

	tenant, err := store.GetTenantBySlug(ctx, "demo")
	if err != nil {
		tenant = &model.Tenant{
			ID:       uuid.NewString(),
			Slug:     "demo",
			Name:     "Demo Tenant",
			Note:     "Seeded for local development",
			IsActive: true,
		}
		if err := store.CreateTenant(ctx, tenant); err != nil {
			log.Fatalf("create tenant: %v", err)
		}
		log.Printf("created tenant %s (%s)", tenant.Slug, tenant.ID)
	} else {
		log.Printf("tenant %s already exists", tenant.Slug)
	}

	rules, err := store.RulesForTenant(ctx, tenant.ID)
	if err != nil {
		log.Fatalf("list rules: %v", err)
	}
	if len(rules) == 0 {
		rule := &model.ScheduleRule{
			ID:       uuid.NewString(),
			TenantID: tenant.ID,
			Action:   services.ActionTestLog,
			Note:     "Weekday 9am smoke test",
			Times: datatypes.JSONMap{
				"hour": 9,
				"days": []interface{}{1, 2, 3, 4, 5},
			},
		}
		if err := store.CreateRule(ctx, rule); err != nil {
			log.Fatalf("create rule: %v", err)
		}
		log.Printf("created schedule rule %s", rule.ID)
	}

	task, err := container.Tasks.CreateFromTemplate(ctx, &tenant.ID, "Demo post", "instagram_post")
	if err != nil {
		log.Fatalf("create task: %v", err)
	}
	jobs, err := store.JobsByTask(ctx, task.ID)
	if err != nil {
		log.Fatalf("list jobs: %v", err)
	}
	log.Printf("created task %s with %d jobs in status %s", task.ID, len(jobs), task.Status)
}
