package file

import (
	"context"
	"sort"
	"time"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

const (
	schedulesDir = "schedules"
	webhooksDir  = "webhooks"
	triggersDir  = "event_triggers"
)

// ScheduleRepository stores schedules as JSON files.
type ScheduleRepository struct {
	root string
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	return writeJSON(r.root, schedulesDir, schedule.ID, schedule)
}

func (r *ScheduleRepository) GetByID(_ context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := readJSON(r.root, schedulesDir, id, &schedule, persistence.ErrScheduleNotFound); err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (r *ScheduleRepository) List(_ context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Schedule], error) {
	all, err := readAll[models.Schedule](r.root, schedulesDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return persistence.NewPage(all, opts.Page, opts.PageSize), nil
}

func (r *ScheduleRepository) Due(_ context.Context, now time.Time) ([]*models.Schedule, error) {
	all, err := readAll[models.Schedule](r.root, schedulesDir)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) Delete(_ context.Context, id string) error {
	return remove(r.root, schedulesDir, id, persistence.ErrScheduleNotFound)
}

// WebhookRepository stores webhook configurations as JSON files. The
// secret hash field is serialized here, never the plaintext secret.
type WebhookRepository struct {
	root string
}

// storedWebhook adds the secret hash to the serialized form; the public
// model deliberately drops it from JSON.
type storedWebhook struct {
	models.Webhook

	SecretHash string `json:"secret_hash,omitempty"`
}

func (r *WebhookRepository) Save(_ context.Context, webhook *models.Webhook) error {
	return writeJSON(r.root, webhooksDir, webhook.ID, &storedWebhook{
		Webhook:    *webhook,
		SecretHash: webhook.SecretHash,
	})
}

func (r *WebhookRepository) GetByID(_ context.Context, id string) (*models.Webhook, error) {
	var stored storedWebhook
	if err := readJSON(r.root, webhooksDir, id, &stored, persistence.ErrWebhookNotFound); err != nil {
		return nil, err
	}

	webhook := stored.Webhook
	webhook.SecretHash = stored.SecretHash

	return &webhook, nil
}

func (r *WebhookRepository) List(_ context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Webhook], error) {
	all, err := readAll[storedWebhook](r.root, webhooksDir)
	if err != nil {
		return nil, err
	}

	webhooks := make([]*models.Webhook, 0, len(all))

	for _, stored := range all {
		webhook := stored.Webhook
		webhook.SecretHash = stored.SecretHash
		webhooks = append(webhooks, &webhook)
	}

	sort.Slice(webhooks, func(i, j int) bool {
		return webhooks[i].CreatedAt.After(webhooks[j].CreatedAt)
	})

	return persistence.NewPage(webhooks, opts.Page, opts.PageSize), nil
}

func (r *WebhookRepository) Delete(_ context.Context, id string) error {
	return remove(r.root, webhooksDir, id, persistence.ErrWebhookNotFound)
}

// EventTriggerRepository stores event triggers as JSON files.
type EventTriggerRepository struct {
	root string
}

func (r *EventTriggerRepository) Save(_ context.Context, trigger *models.EventTrigger) error {
	return writeJSON(r.root, triggersDir, trigger.ID, trigger)
}

func (r *EventTriggerRepository) GetByID(_ context.Context, id string) (*models.EventTrigger, error) {
	var trigger models.EventTrigger
	if err := readJSON(r.root, triggersDir, id, &trigger, persistence.ErrTriggerNotFound); err != nil {
		return nil, err
	}

	return &trigger, nil
}

func (r *EventTriggerRepository) List(_ context.Context, opts persistence.ListOptions) (*persistence.Page[*models.EventTrigger], error) {
	all, err := readAll[models.EventTrigger](r.root, triggersDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return persistence.NewPage(all, opts.Page, opts.PageSize), nil
}

func (r *EventTriggerRepository) ByEventType(_ context.Context, eventType string) ([]*models.EventTrigger, error) {
	all, err := readAll[models.EventTrigger](r.root, triggersDir)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.EventTrigger, 0)

	for _, trigger := range all {
		if trigger.EventType == eventType {
			matching = append(matching, trigger)
		}
	}

	return matching, nil
}

func (r *EventTriggerRepository) Delete(_ context.Context, id string) error {
	return remove(r.root, triggersDir, id, persistence.ErrTriggerNotFound)
}
