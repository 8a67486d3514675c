package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/otelhelper"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/registry"
	"github.com/stratoml/strato/pkg/workflow"
)

// sweepInterval is how often orphaned suspensions are checked for
// expiry.
const sweepInterval = 30 * time.Second

// WorkerManager consumes execution requests off the bus, drives them
// through the engine, and routes inbound platform events to suspended
// steps.
type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	engine      *workflow.Engine
	tracer      trace.Tracer
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	reg *registry.Registry,
	tracer trace.Tracer,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "strato-worker", "worker_id", id),
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		engine:      workflow.NewEngine(store, reg, eventBus, logger),
		tracer:      tracer,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	if err := w.eventBus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.PlatformEventReceived, w.handlePlatformEvent); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.recoverSuspended(ctx)

	go w.sweepSuspensions(ctx)

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
	case <-ctx.Done():
	}

	return nil
}

func (w *WorkerManager) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionRequested")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", requested.WorkflowID,
		"execution_id", requested.ExecutionID,
		"triggered_by", requested.TriggeredBy,
	)
	logger.InfoContext(ctx, "Processing execution request")

	// Each execution runs in its own goroutine so a long run never
	// blocks the bus consumer.
	go func() {
		var err error

		ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.execute",
			attribute.String(otelhelper.WorkflowIDKey, requested.WorkflowID),
			attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID),
			attribute.String(otelhelper.WorkerIDKey, w.id),
		)
		defer span.End()

		if requested.ExecutionID != "" {
			// The API already persisted a PENDING execution for this id.
			_, err = w.engine.Resume(ctx, requested.ExecutionID)
			if persistence.IsExecutionNotFound(err) {
				_, err = w.engine.Execute(ctx, requested.WorkflowID, requested.ExecutionID, requested.Params)
			}
		} else {
			_, err = w.engine.Execute(ctx, requested.WorkflowID, "", requested.Params)
		}

		if err != nil {
			otelhelper.SetError(span, err,
				attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID))
			logger.ErrorContext(ctx, "Execution failed to run", "error", err)
		}
	}()

	return nil
}

func (w *WorkerManager) handlePlatformEvent(ctx context.Context, event any) error {
	platformEvent, ok := event.(*events.PlatformEvent)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for PlatformEvent")

		return nil
	}

	if platformEvent.IsMetadata() {
		return nil
	}

	if delivered := w.engine.Router().Dispatch(platformEvent); !delivered {
		w.logger.DebugContext(ctx, "No suspended step for platform event",
			"correlation_id", platformEvent.CorrelationID())
	}

	return nil
}

// recoverSuspended resumes executions that were parked on an external
// event when the previous worker died.
func (w *WorkerManager) recoverSuspended(ctx context.Context) {
	suspensions, err := w.persistence.Suspensions().List(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list suspensions for recovery", "error", err)

		return
	}

	resumed := make(map[string]struct{})

	for _, suspension := range suspensions {
		if _, done := resumed[suspension.ExecutionID]; done {
			continue
		}

		resumed[suspension.ExecutionID] = struct{}{}

		if err := w.persistence.Suspensions().Delete(ctx, suspension.CorrelationID); err != nil &&
			!persistence.IsSuspensionNotFound(err) {
			w.logger.WarnContext(ctx, "Failed to clear stale suspension",
				"correlation_id", suspension.CorrelationID, "error", err)
		}

		executionID := suspension.ExecutionID

		go func() {
			w.logger.InfoContext(ctx, "Recovering suspended execution", "execution_id", executionID)

			if _, err := w.engine.Resume(ctx, executionID); err != nil {
				w.logger.ErrorContext(ctx, "Failed to recover execution",
					"execution_id", executionID, "error", err)
			}
		}()
	}
}

// sweepSuspensions removes expired suspension records that no longer
// have a live waiter, so restarts never leak parked state.
func (w *WorkerManager) sweepSuspensions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := w.persistence.Suspensions().Expired(ctx, now.UTC())
			if err != nil {
				w.logger.ErrorContext(ctx, "Suspension sweep failed", "error", err)

				continue
			}

			for _, suspension := range expired {
				if w.engine.Router().Waiting(suspension.CorrelationID) {
					// The owning step goroutine enforces its own deadline.
					continue
				}

				w.logger.WarnContext(ctx, "Removing orphaned suspension",
					"correlation_id", suspension.CorrelationID,
					"execution_id", suspension.ExecutionID)

				if err := w.persistence.Suspensions().Delete(ctx, suspension.CorrelationID); err != nil &&
					!persistence.IsSuspensionNotFound(err) {
					w.logger.ErrorContext(ctx, "Failed to delete suspension",
						"correlation_id", suspension.CorrelationID, "error", err)
				}
			}
		}
	}
}
