package services

import (
	"fmt"

	"gorm.io/datatypes"
)

// JobSpec describes one job a template seeds on a new task.
type JobSpec struct {
	Generator string
	Purpose   string
	Prompt    map[string]interface{}
	SortOrder int
}

// TaskTemplate defines the default meta/post shape for a new task and the
// jobs it starts with.
type TaskTemplate struct {
	Name string
	Meta map[string]interface{}
	Post map[string]interface{}
	Jobs []JobSpec
}

// TemplateRegistry maps template names to their definitions. The set is fixed
// at construction so an unknown name is always a caller error, never a
// misconfiguration discovered mid-pipeline.
type TemplateRegistry struct {
	templates map[string]TaskTemplate
}

// NewTemplateRegistry returns the registry with the built-in templates.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{templates: map[string]TaskTemplate{}}

	// instagram_post: a carousel of AI images plus a caption. Two image jobs
	// by default; admins edit prompts and add jobs before approval.
	r.register(TaskTemplate{
		Name: "instagram_post",
		Meta: map[string]interface{}{
			"theme": nil,
		},
		Post: map[string]interface{}{
			"caption": nil,
		},
		Jobs: []JobSpec{
			{Generator: "dalle", Purpose: "imagecontent", Prompt: map[string]interface{}{"prompt": nil}, SortOrder: 1},
			{Generator: "dalle", Purpose: "imagecontent", Prompt: map[string]interface{}{"prompt": nil}, SortOrder: 0},
		},
	})

	return r
}

func (r *TemplateRegistry) register(t TaskTemplate) {
	r.templates[t.Name] = t
}

// Get returns the template for name or ErrUnknownTemplate.
func (r *TemplateRegistry) Get(name string) (TaskTemplate, error) {
	t, ok := r.templates[name]
	if !ok {
		return TaskTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names lists the registered template names.
func (r *TemplateRegistry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

func cloneJSONMap(m map[string]interface{}) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range m {
		out[k] = v
	}
	return out
}
