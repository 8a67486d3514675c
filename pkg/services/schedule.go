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

// Schedule manages workflow schedules: validation, next-run bookkeeping
// and the pause/resume lifecycle.
type Schedule struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewSchedule(store persistence.Persistence) *Schedule {
	return &Schedule{
		persistence: store,
		validator:   validator.New(),
	}
}

// Create validates the expression and stores the schedule with its first
// next_run_at computed.
func (s *Schedule) Create(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule cannot be nil", ErrInvalidRequest)
	}

	if err := s.validator.Struct(schedule); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := s.persistence.Workflows().GetByID(ctx, schedule.WorkflowID); err != nil {
		return nil, err
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	schedule.ID = uuid.New().String()
	schedule.Status = models.ScheduleStatusActive
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	if err := schedule.RefreshNextRun(now); err != nil {
		return nil, err
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Update replaces the schedule's configuration. Changing the expression,
// interval or run_at always recomputes next_run_at.
func (s *Schedule) Update(ctx context.Context, id string, updated *models.Schedule) (*models.Schedule, error) {
	existing, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		return nil, fmt.Errorf("%w: schedule cannot be nil", ErrInvalidRequest)
	}

	if err := s.validator.Struct(updated); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	updated.ID = existing.ID
	updated.Status = existing.Status
	updated.RunCount = existing.RunCount
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := updated.RefreshNextRun(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.persistence.Schedules().Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// Get fetches one schedule.
func (s *Schedule) Get(ctx context.Context, id string) (*models.Schedule, error) {
	return s.persistence.Schedules().GetByID(ctx, id)
}

// List pages stored schedules.
func (s *Schedule) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Schedule], error) {
	return s.persistence.Schedules().List(ctx, opts)
}

// Delete removes a schedule permanently.
func (s *Schedule) Delete(ctx context.Context, id string) error {
	return s.persistence.Schedules().Delete(ctx, id)
}

// Pause stops a schedule from firing without losing its configuration.
func (s *Schedule) Pause(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	schedule.Status = models.ScheduleStatusPaused
	schedule.Enabled = false
	schedule.NextRunAt = nil
	schedule.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Resume reactivates a paused schedule, recomputing next_run_at relative
// to resume time. Expired and completed schedules cannot be resumed.
func (s *Schedule) Resume(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if schedule.Status == models.ScheduleStatusExpired || schedule.Status == models.ScheduleStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrScheduleNotResumable, id, schedule.Status)
	}

	now := time.Now().UTC()
	schedule.Status = models.ScheduleStatusActive
	schedule.Enabled = true
	schedule.UpdatedAt = now

	if err := schedule.RefreshNextRun(now); err != nil {
		return nil, err
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Preview returns the next n fire times without mutating the schedule.
func (s *Schedule) Preview(ctx context.Context, id string, n int) ([]time.Time, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if n <= 0 {
		n = 5
	}

	return schedule.NextRuns(time.Now().UTC(), n)
}
