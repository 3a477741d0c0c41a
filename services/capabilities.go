package services

import (
	"context"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
)

// GeneratorResult is what a generator hands back on success.
type GeneratorResult struct {
	ImagePath string // local path of the generated asset, relative to the output dir
	ImageURL  string // remote URL reported by the generator, when it provides one
}

// Generator produces one asset for a job. Implementations receive the resolved
// tenant config and must not read process-wide state. A failed generation is
// reported by returning an error; the job service owns status bookkeeping.
type Generator interface {
	Generate(ctx context.Context, job *model.Job, env config.TenantEnv) (*GeneratorResult, error)
}

// Uploader makes a local asset publicly reachable and returns its public URL.
// Upload failures are best-effort for callers: they log and move on.
type Uploader interface {
	UploadPublic(ctx context.Context, localPath, key string) (string, error)
}

// AssetRemover deletes a previously uploaded asset by key. Task deletion uses
// it to clean up public copies; failures are logged, never fatal.
type AssetRemover interface {
	Delete(ctx context.Context, key string) error
}

// PublishClient talks to the social platform. Both calls return the raw
// publish payload (media id, permalink, media info) for the task's result log.
type PublishClient interface {
	PublishImage(ctx context.Context, env config.TenantEnv, imageURL, caption string) (map[string]interface{}, error)
	PublishCarousel(ctx context.Context, env config.TenantEnv, imageURLs []string, caption string) (map[string]interface{}, error)
}

// Notifier is fire-and-forget: implementations swallow their own failures.
// The tenant attributes the message.
type Notifier interface {
	Notify(ctx context.Context, tenant *model.Tenant, eventType, message string)
}

// Action is a named operation a schedule rule can trigger against a task.
// The returned map is stored in the schedule log's result column.
type Action interface {
	Do(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error)

func (f ActionFunc) Do(ctx context.Context, tenant *model.Tenant, task *model.Task, logEntry *model.ScheduleLog) (map[string]interface{}, error) {
	return f(ctx, tenant, task, logEntry)
}
