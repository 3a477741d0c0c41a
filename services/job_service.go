package services

import (
	"context"
	"fmt"
	"log"
	"path"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
	"gorm.io/datatypes"
)

// JobService owns the job state machine and drives one generation call per
// ProcessJob invocation through a registered generator.
type JobService struct {
	store      Store
	generators map[string]Generator
	uploader   Uploader
}

// NewJobService validates the generator registry up front: a nil generator
// under a key is a wiring bug, not something to discover at job time.
func NewJobService(store Store, generators map[string]Generator, uploader Uploader) (*JobService, error) {
	for key, gen := range generators {
		if key == "" || gen == nil {
			return nil, fmt.Errorf("generator registry entry %q is invalid", key)
		}
	}
	return &JobService{store: store, generators: generators, uploader: uploader}, nil
}

// GeneratorNames lists the registered generator keys.
func (s *JobService) GeneratorNames() []string {
	names := make([]string, 0, len(s.generators))
	for name := range s.generators {
		names = append(names, name)
	}
	return names
}

// ProcessJob drives one job through READY|ERROR -> PROCESSING -> PROCESSED or
// ERROR. Any other starting status is rejected with ErrNotProcessable and no
// state change. On generator failure the job lands in ERROR with result.error
// set and the error is returned; the caller decides whether to retry by
// invoking ProcessJob again.
func (s *JobService) ProcessJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsProcessable() {
		return nil, fmt.Errorf("%w: job %s is %s, allowed: %s, %s",
			ErrNotProcessable, job.ID, job.Status, model.JobStatusReady, model.JobStatusError)
	}

	task, err := s.store.GetTask(ctx, job.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load parent task: %w", err)
	}
	var tenant *model.Tenant
	if task.TenantID != nil {
		tenant, err = s.store.GetTenant(ctx, *task.TenantID)
		if err != nil {
			return nil, fmt.Errorf("load tenant: %w", err)
		}
	}
	env := config.ForTenant(tenant)

	job.Status = model.JobStatusProcessing
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("[WORKER] Processing job %s with generator %s", job.ID, job.Generator)

	gen, ok := s.generators[job.Generator]
	if !ok {
		return s.failJob(ctx, job, fmt.Errorf("%w: %q", ErrUnknownGenerator, job.Generator))
	}

	res, err := gen.Generate(ctx, job, env)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	result := datatypes.JSONMap{
		"generator":  job.Generator,
		"image_path": res.ImagePath,
	}
	if res.ImageURL != "" {
		result["image_url"] = res.ImageURL
	}

	// Making the asset public is best-effort: a failed upload leaves
	// public_url unset and the publisher falls back to PUBLIC_URL + path.
	if s.uploader != nil && res.ImagePath != "" {
		key := path.Join("tasks", job.TaskID, path.Base(res.ImagePath))
		publicURL, upErr := s.uploader.UploadPublic(ctx, res.ImagePath, key)
		if upErr != nil {
			log.Printf("[WORKER] Public upload failed for job %s: %v", job.ID, upErr)
		} else {
			result["public_url"] = publicURL
		}
	}

	job.Status = model.JobStatusProcessed
	job.Result = result
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("[WORKER] Job %s processed, image at %s", job.ID, res.ImagePath)
	return job, nil
}

// failJob records the failure on the job (ERROR + result.error) and returns
// the original error. The error string keeps the concrete type so operators
// can tell validation failures from API failures when reading the store.
func (s *JobService) failJob(ctx context.Context, job *model.Job, cause error) (*model.Job, error) {
	job.Status = model.JobStatusError
	job.Result = datatypes.JSONMap{
		"error": fmt.Sprintf("%T: %v", cause, cause),
	}
	if saveErr := s.store.SaveJob(ctx, job); saveErr != nil {
		log.Printf("[WORKER] Failed to persist error state for job %s: %v", job.ID, saveErr)
	}
	log.Printf("[WORKER] Job %s failed: %v", job.ID, cause)
	return job, cause
}
