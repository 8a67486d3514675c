package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/services"
)

// pollInterval bounds how late a due schedule can fire.
const pollInterval = 10 * time.Second

// Scheduler fires due schedules and matches inbound platform events
// against event triggers, submitting executions for both.
type Scheduler struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	executions  *services.Execution
	triggers    *services.EventTrigger
}

func NewScheduler(
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		logger:      logger.With("module", "strato-scheduler"),
		persistence: store,
		eventBus:    eventBus,
		executions:  services.NewExecution(store, eventBus),
		triggers:    services.NewEventTrigger(store),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting scheduler")

	if err := s.eventBus.Handle(events.PlatformEventReceived, s.handlePlatformEvent); err != nil {
		return err
	}

	if err := s.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	go s.pollSchedules(ctx)

	s.logger.InfoContext(ctx, "Scheduler started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		s.logger.InfoContext(ctx, "Shutting down scheduler...")
	case <-ctx.Done():
	}

	return nil
}

func (s *Scheduler) pollSchedules(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			s.fireDue(ctx, tick.UTC())
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	due, err := s.persistence.Schedules().Due(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	for _, schedule := range due {
		if !schedule.IsDue(now) {
			continue
		}

		s.fire(ctx, schedule, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, schedule *models.Schedule, now time.Time) {
	logger := s.logger.With("schedule_id", schedule.ID, "workflow_id", schedule.WorkflowID)

	execution, err := s.executions.Trigger(
		ctx, schedule.WorkflowID, schedule.Params, events.TriggerSourceSchedule, schedule.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to trigger scheduled execution", "error", err)
	} else {
		logger.InfoContext(ctx, "Scheduled execution submitted", "execution_id", execution.ID)
	}

	schedule.RunCount++

	switch {
	case schedule.Type == models.ScheduleTypeOneTime:
		schedule.Status = models.ScheduleStatusCompleted
		schedule.NextRunAt = nil
	case schedule.Exhausted(now):
		schedule.Status = models.ScheduleStatusExpired
		if schedule.MaxRuns > 0 && schedule.RunCount >= schedule.MaxRuns {
			schedule.Status = models.ScheduleStatusCompleted
		}

		schedule.NextRunAt = nil
	default:
		if err := schedule.RefreshNextRun(now); err != nil {
			logger.ErrorContext(ctx, "Failed to recompute next run", "error", err)
			schedule.NextRunAt = nil
		}
	}

	schedule.UpdatedAt = now

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		logger.ErrorContext(ctx, "Failed to save schedule after firing", "error", err)
	}
}

// handlePlatformEvent matches inbound platform events against the
// registered event triggers and submits an execution per match.
func (s *Scheduler) handlePlatformEvent(ctx context.Context, event any) error {
	platformEvent, ok := event.(*events.PlatformEvent)
	if !ok {
		s.logger.ErrorContext(ctx, "Invalid event type for PlatformEvent")

		return nil
	}

	if platformEvent.IsMetadata() {
		return nil
	}

	eventName := platformEvent.EventName()
	if eventName == "" {
		return nil
	}

	matched, err := s.triggers.Matching(ctx, eventName, platformEvent.Payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to match event triggers", "event", eventName, "error", err)

		return err
	}

	for _, trigger := range matched {
		logger := s.logger.With("trigger_id", trigger.ID, "workflow_id", trigger.WorkflowID, "event", eventName)

		params := make(map[string]any, len(trigger.Params)+1)
		for key, value := range trigger.Params {
			params[key] = value
		}

		params["event"] = platformEvent.Payload

		execution, err := s.executions.Trigger(
			ctx, trigger.WorkflowID, params, events.TriggerSourceEvent, trigger.ID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to trigger execution for event", "error", err)

			continue
		}

		logger.InfoContext(ctx, "Event-triggered execution submitted", "execution_id", execution.ID)
	}

	return nil
}
