package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// ScheduleRepository stores workflow schedules.
type ScheduleRepository struct {
	db *sql.DB
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	document, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule %s: %w", schedule.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, workflow_id, status, enabled, next_run_at, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			enabled = EXCLUDED.enabled,
			next_run_at = EXCLUDED.next_run_at,
			document = EXCLUDED.document
	`, schedule.ID, schedule.WorkflowID, schedule.Status, schedule.Enabled, schedule.NextRunAt, document, schedule.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveSchedule", schedule.ID, err)
	}

	return nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM schedules WHERE id = $1", id)

	return scanDocument[models.Schedule](row, persistence.ErrScheduleNotFound)
}

func (r *ScheduleRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Schedule], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schedules").Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListSchedules", "", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM schedules ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, persistence.NewStoreError("ListSchedules", "", err)
	}

	items, err := scanDocuments[models.Schedule](rows)
	if err != nil {
		return nil, err
	}

	return pageOf(items, total, page, pageSize), nil
}

func (r *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document FROM schedules
		WHERE enabled AND status = $1 AND next_run_at IS NOT NULL AND next_run_at <= $2
		ORDER BY next_run_at
	`, models.ScheduleStatusActive, now)
	if err != nil {
		return nil, persistence.NewStoreError("DueSchedules", "", err)
	}

	return scanDocuments[models.Schedule](rows)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, "schedules", "DeleteSchedule", id, persistence.ErrScheduleNotFound)
}

// WebhookRepository stores webhook configurations. The secret hash is
// carried inside the JSONB document under a dedicated key because the
// public model drops it from JSON.
type WebhookRepository struct {
	db *sql.DB
}

type storedWebhook struct {
	models.Webhook

	SecretHash string `json:"secret_hash,omitempty"`
}

func (r *WebhookRepository) Save(ctx context.Context, webhook *models.Webhook) error {
	document, err := json.Marshal(&storedWebhook{
		Webhook:    *webhook,
		SecretHash: webhook.SecretHash,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook %s: %w", webhook.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, document, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document
	`, webhook.ID, document, webhook.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveWebhook", webhook.ID, err)
	}

	return nil
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM webhooks WHERE id = $1", id)

	stored, err := scanDocument[storedWebhook](row, persistence.ErrWebhookNotFound)
	if err != nil {
		return nil, err
	}

	webhook := stored.Webhook
	webhook.SecretHash = stored.SecretHash

	return &webhook, nil
}

func (r *WebhookRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Webhook], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhooks").Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListWebhooks", "", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM webhooks ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, persistence.NewStoreError("ListWebhooks", "", err)
	}

	stored, err := scanDocuments[storedWebhook](rows)
	if err != nil {
		return nil, err
	}

	items := make([]*models.Webhook, len(stored))
	for i, s := range stored {
		webhook := s.Webhook
		webhook.SecretHash = s.SecretHash
		items[i] = &webhook
	}

	return pageOf(items, total, page, pageSize), nil
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, "webhooks", "DeleteWebhook", id, persistence.ErrWebhookNotFound)
}

// EventTriggerRepository stores platform event triggers.
type EventTriggerRepository struct {
	db *sql.DB
}

func (r *EventTriggerRepository) Save(ctx context.Context, trigger *models.EventTrigger) error {
	document, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal event trigger %s: %w", trigger.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO event_triggers (id, event_type, document, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			document = EXCLUDED.document
	`, trigger.ID, trigger.EventType, document, trigger.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveEventTrigger", trigger.ID, err)
	}

	return nil
}

func (r *EventTriggerRepository) GetByID(ctx context.Context, id string) (*models.EventTrigger, error) {
	row := r.db.QueryRowContext(ctx, "SELECT document FROM event_triggers WHERE id = $1", id)

	return scanDocument[models.EventTrigger](row, persistence.ErrTriggerNotFound)
}

func (r *EventTriggerRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.EventTrigger], error) {
	page, pageSize := normalizePage(opts.Page, opts.PageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_triggers").Scan(&total); err != nil {
		return nil, persistence.NewStoreError("ListEventTriggers", "", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM event_triggers ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, persistence.NewStoreError("ListEventTriggers", "", err)
	}

	items, err := scanDocuments[models.EventTrigger](rows)
	if err != nil {
		return nil, err
	}

	return pageOf(items, total, page, pageSize), nil
}

func (r *EventTriggerRepository) ByEventType(ctx context.Context, eventType string) ([]*models.EventTrigger, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM event_triggers WHERE event_type = $1 ORDER BY created_at",
		eventType,
	)
	if err != nil {
		return nil, persistence.NewStoreError("EventTriggersByType", eventType, err)
	}

	return scanDocuments[models.EventTrigger](rows)
}

func (r *EventTriggerRepository) Delete(ctx context.Context, id string) error {
	return deleteRow(ctx, r.db, "event_triggers", "DeleteEventTrigger", id, persistence.ErrTriggerNotFound)
}

func deleteRow(ctx context.Context, db *sql.DB, table, op, id string, notFound error) error {
	result, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError(op, id, err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
