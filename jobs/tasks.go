// Package jobs holds the background worker and its task definitions.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTemplateWarmup refreshes the per-company tax-template caches.
	TaskTemplateWarmup = "masterdata:template_warmup"
)

// TemplateWarmupPayload selects the companies to warm. An empty list means
// every company in the database.
type TemplateWarmupPayload struct {
	Companies []string `json:"companies"`
}

// NewTemplateWarmupTask constructs an Asynq task.
func NewTemplateWarmupTask(companies []string) (*asynq.Task, error) {
	data, err := json.Marshal(TemplateWarmupPayload{Companies: companies})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTemplateWarmup, data), nil
}
