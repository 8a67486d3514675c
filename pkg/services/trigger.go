package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// EventTrigger manages platform event triggers bound to the closed set
// of supported event types.
type EventTrigger struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewEventTrigger(store persistence.Persistence) *EventTrigger {
	return &EventTrigger{
		persistence: store,
		validator:   validator.New(),
	}
}

// SupportedEventTypes lists the platform event types triggers may bind to.
func (s *EventTrigger) SupportedEventTypes() []models.SupportedEventType {
	return models.SupportedEventTypes
}

// Create stores a new trigger after checking its event type against the
// supported set.
func (s *EventTrigger) Create(ctx context.Context, trigger *models.EventTrigger) (*models.EventTrigger, error) {
	if trigger == nil {
		return nil, fmt.Errorf("%w: trigger cannot be nil", ErrInvalidRequest)
	}

	if err := s.validator.Struct(trigger); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if !models.ValidEventType(trigger.EventType) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedEventType, trigger.EventType)
	}

	if _, err := s.persistence.Workflows().GetByID(ctx, trigger.WorkflowID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	trigger.ID = uuid.New().String()
	trigger.Enabled = true
	trigger.CreatedAt = now
	trigger.UpdatedAt = now

	if err := s.persistence.EventTriggers().Save(ctx, trigger); err != nil {
		return nil, err
	}

	return trigger, nil
}

// Update replaces a trigger's configuration, revalidating the event type.
func (s *EventTrigger) Update(ctx context.Context, id string, updated *models.EventTrigger) (*models.EventTrigger, error) {
	existing, err := s.persistence.EventTriggers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		return nil, fmt.Errorf("%w: trigger cannot be nil", ErrInvalidRequest)
	}

	if err := s.validator.Struct(updated); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if !models.ValidEventType(updated.EventType) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedEventType, updated.EventType)
	}

	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.persistence.EventTriggers().Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// Get fetches one trigger.
func (s *EventTrigger) Get(ctx context.Context, id string) (*models.EventTrigger, error) {
	return s.persistence.EventTriggers().GetByID(ctx, id)
}

// List pages stored triggers.
func (s *EventTrigger) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.EventTrigger], error) {
	return s.persistence.EventTriggers().List(ctx, opts)
}

// Delete removes a trigger permanently.
func (s *EventTrigger) Delete(ctx context.Context, id string) error {
	return s.persistence.EventTriggers().Delete(ctx, id)
}

// Matching returns the enabled triggers whose event type and filters
// match the inbound platform event.
func (s *EventTrigger) Matching(ctx context.Context, eventType string, payload map[string]any) ([]*models.EventTrigger, error) {
	triggers, err := s.persistence.EventTriggers().ByEventType(ctx, eventType)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.EventTrigger, 0, len(triggers))

	for _, trigger := range triggers {
		if trigger.Enabled && trigger.Matches(eventType, payload) {
			matched = append(matched, trigger)
		}
	}

	return matched, nil
}
