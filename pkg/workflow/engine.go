// Package workflow implements the execution engine: it drives a parsed
// workflow through its dependency batches, applying per-step conditions,
// param resolution, retry policies and event-driven suspension.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/expression"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/protocol"
	"github.com/stratoml/strato/pkg/registry"
	"github.com/stratoml/strato/pkg/template"
)

// ConditionalAction is the built-in branching action. On completion its
// target_step output prunes the branches that did not match.
const ConditionalAction = "conditional"

// ErrSuspensionTimeout marks a parked step whose completion event never
// arrived within its max-wait window.
var ErrSuspensionTimeout = errors.New("suspension deadline exceeded")

// Engine runs workflow executions. One Engine serves many concurrent
// executions; each execution is driven by a single goroutine that fans
// out per-batch step goroutines.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	evaluator   *expression.Evaluator
	publisher   eventbus.EventPublisher
	router      *Router
	logger      *slog.Logger
}

func NewEngine(
	store persistence.Persistence,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: store,
		registry:    reg,
		evaluator:   expression.NewEvaluator(),
		publisher:   publisher,
		router:      NewRouter(),
		logger:      logger.With("module", "engine"),
	}
}

// Router exposes the platform event router so the bus consumer can
// deliver events to suspended steps.
func (e *Engine) Router() *Router {
	return e.router
}

// Execute runs one workflow from scratch. Params are overlaid on the
// workflow's declared defaults. The returned execution is terminal.
func (e *Engine) Execute(ctx context.Context, workflowID, executionID string, params map[string]any) (*models.Execution, error) {
	def, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if err := graph.Executable(); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, err)
	}

	if executionID == "" {
		executionID = uuid.New().String()
	}

	now := time.Now().UTC()
	execution := &models.Execution{
		ID:         executionID,
		WorkflowID: workflowID,
		Status:     models.ExecutionStatusPending,
		Params:     def.MergeParams(params),
		Steps:      make(map[string]*models.StepState, len(def.Steps)),
		CreatedAt:  now,
	}

	for _, step := range def.Steps {
		execution.Steps[step.ID] = &models.StepState{
			StepID: step.ID,
			Status: models.StepStatusPending,
		}
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, err
	}

	return e.drive(ctx, def, graph, execution, nil)
}

// Resume picks up a persisted RUNNING execution after a worker restart.
// Terminal steps keep their recorded outcome; everything else reruns,
// including previously suspended steps, which re-park on their original
// correlation ids when their handlers delegate again.
func (e *Engine) Resume(ctx context.Context, executionID string) (*models.Execution, error) {
	execution, err := e.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.IsTerminal() {
		return execution, nil
	}

	def, err := e.persistence.Workflows().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, err
	}

	graph, err := dag.Parse(def)
	if err != nil {
		return nil, err
	}

	if err := graph.Executable(); err != nil {
		return nil, err
	}

	completed := make(map[string]struct{})

	for id, state := range execution.Steps {
		if state.Status == models.StepStatusCompleted || state.Status == models.StepStatusSkipped {
			completed[id] = struct{}{}

			continue
		}

		// Non-terminal steps restart cleanly.
		execution.Steps[id] = &models.StepState{
			StepID: id,
			Status: models.StepStatusPending,
		}
	}

	e.logger.Info("Resuming execution",
		"execution_id", executionID, "completed_steps", len(completed))

	return e.drive(ctx, def, graph, execution, completed)
}

// drive is the per-execution driving loop. done holds the ids of steps
// already terminal from a previous run of the same execution.
func (e *Engine) drive(
	ctx context.Context,
	def *models.WorkflowDefinition,
	graph *dag.Graph,
	execution *models.Execution,
	done map[string]struct{},
) (*models.Execution, error) {
	batches, err := graph.Resolver().ExecutionOrder()
	if err != nil {
		// An unschedulable graph must not strand the run as PENDING.
		e.abort(execution, err.Error())

		if saveErr := e.persistence.Executions().Save(ctx, execution); saveErr != nil {
			return nil, saveErr
		}

		e.publishFailed(ctx, execution)

		return nil, err
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning

	if execution.StartedAt == nil {
		execution.StartedAt = &now
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, err
	}

	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)
	logger.Info("Execution started", "batches", len(batches))

	// stepOutputs is written only at batch barriers and read by the next
	// batch's step goroutines, so it needs no lock.
	stepOutputs := make(map[string]map[string]any)

	for id := range done {
		if state := execution.Steps[id]; state != nil && state.Outputs != nil {
			stepOutputs[id] = state.Outputs
		}
	}

	for _, batch := range batches {
		pending := make([]*models.Step, 0, len(batch))

		for _, id := range batch {
			state := execution.Steps[id]
			if state.Status.IsTerminal() {
				continue
			}

			step, ok := def.StepByID(id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", dag.ErrUnknownStep, id)
			}

			pending = append(pending, step)
		}

		if len(pending) == 0 {
			continue
		}

		results := e.runBatch(ctx, logger, execution, pending, stepOutputs)

		abortErr := ""

		for _, result := range results {
			if result.outputs != nil {
				stepOutputs[result.stepID] = result.outputs
			}

			if result.err != nil && result.policy == models.FailurePolicyAbort {
				abortErr = fmt.Sprintf("step %s: %s", result.stepID, result.err)
			}
		}

		for _, result := range results {
			if result.branchTarget != "" {
				e.pruneBranches(execution, result.branchTarget, result.branches)
			}
		}

		if abortErr != "" {
			e.abort(execution, abortErr)

			if err := e.persistence.Executions().Save(ctx, execution); err != nil {
				return nil, err
			}

			e.publishFailed(ctx, execution)
			logger.Warn("Execution aborted", "error", abortErr)

			return execution, nil
		}

		if err := e.persistence.Executions().Save(ctx, execution); err != nil {
			return nil, err
		}
	}

	if err := e.finish(ctx, def, execution, stepOutputs); err != nil {
		return nil, err
	}

	return execution, nil
}

// stepResult is what one step goroutine hands back to the driver.
type stepResult struct {
	stepID       string
	outputs      map[string]any
	err          error
	policy       models.FailurePolicy
	branchTarget string
	branches     []string
}

func (e *Engine) runBatch(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.Execution,
	steps []*models.Step,
	stepOutputs map[string]map[string]any,
) []stepResult {
	results := make([]stepResult, len(steps))

	var wg sync.WaitGroup

	for i, step := range steps {
		wg.Add(1)

		go func(i int, step *models.Step) {
			defer wg.Done()

			results[i] = e.runStep(ctx, logger, execution, step, stepOutputs)
		}(i, step)
	}

	wg.Wait()

	return results
}

// runStep owns execution.Steps[step.ID] exclusively for its duration.
func (e *Engine) runStep(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.Execution,
	step *models.Step,
	stepOutputs map[string]map[string]any,
) stepResult {
	state := execution.Steps[step.ID]
	policy := step.FailurePolicyOrDefault()
	result := stepResult{stepID: step.ID, policy: policy}

	now := time.Now().UTC()
	state.Status = models.StepStatusRunning
	state.StartedAt = &now

	if step.Condition != "" {
		matched, err := e.evaluator.Evaluate(step.Condition, execution.Params, stepOutputs)
		if err != nil {
			return e.failStep(logger, state, result, fmt.Errorf("condition: %w", err))
		}

		if !matched {
			e.skipStep(state, "condition not met")
			logger.Info("Step skipped", "step_id", step.ID, "reason", state.SkipReason)

			return result
		}
	}

	resolved, err := template.Resolve(step.Params, execution.Params, stepOutputs)
	if err != nil {
		return e.failStep(logger, state, result, fmt.Errorf("params: %w", err))
	}

	params, _ := resolved.(map[string]any)

	handler, registered := e.registry.HandlerFor(step.Action)
	if !registered {
		logger.Info("Running step in mock mode", "step_id", step.ID, "action", step.Action)
	}

	if errs := handler.Validate(params); len(errs) > 0 {
		return e.failStep(logger, state, result, fmt.Errorf("invalid params: %w", errors.Join(errs...)))
	}

	outputs, err := e.invokeWithRetry(ctx, logger, execution, step, state, handler, params, stepOutputs)
	if err != nil {
		return e.failStep(logger, state, result, err)
	}

	e.completeStep(state, outputs)
	result.outputs = outputs

	if step.Action == ConditionalAction {
		result.branchTarget, result.branches = branchDecision(params, outputs)
	}

	logger.Info("Step completed", "step_id", step.ID, "attempts", state.Attempt)

	return result
}

// invokeWithRetry drives the handler through the step's retry policy.
// The backoff sleep blocks only this step's goroutine.
func (e *Engine) invokeWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.Execution,
	step *models.Step,
	state *models.StepState,
	handler protocol.StepHandler,
	params map[string]any,
	stepOutputs map[string]map[string]any,
) (map[string]any, error) {
	retry := step.RetryOrDefault()
	backoff := time.Duration(retry.BackoffSeconds * float64(time.Second))
	maxBackoff := time.Duration(retry.MaxBackoffSeconds * float64(time.Second))

	maxAttempts := retry.MaxAttempts
	if step.FailurePolicyOrDefault() != models.FailurePolicyRetry {
		maxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state.Attempt = attempt

		hctx := protocol.HandlerContext{
			ExecutionID:    execution.ID,
			WorkflowID:     execution.WorkflowID,
			StepID:         step.ID,
			Params:         params,
			WorkflowParams: execution.Params,
			StepOutputs:    stepOutputs,
			Attempt:        attempt,
			Timeout:        time.Duration(step.TimeoutSeconds) * time.Second,
			Logger:         logger.With("step_id", step.ID),
		}

		outputs, err := e.invoke(ctx, hctx, step, state, handler)
		if err == nil {
			return outputs, nil
		}

		lastErr = err

		if attempt == maxAttempts {
			break
		}

		state.Status = models.StepStatusRetrying
		logger.Warn("Step failed, retrying",
			"step_id", step.ID, "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * retry.BackoffMultiplier)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		state.Status = models.StepStatusRunning
	}

	return nil, lastErr
}

// invoke runs the handler once, following a suspension through to its
// completion event or deadline.
func (e *Engine) invoke(
	ctx context.Context,
	hctx protocol.HandlerContext,
	step *models.Step,
	state *models.StepState,
	handler protocol.StepHandler,
) (map[string]any, error) {
	execCtx := ctx
	if hctx.Timeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, hctx.Timeout)
		defer cancel()
	}

	result, err := handler.Execute(execCtx, hctx)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return map[string]any{}, nil
	}

	if result.Await == nil {
		return result.Outputs, nil
	}

	return e.await(ctx, hctx, state, handler, result.Await)
}

// await parks the step until its completion event arrives or MaxWait
// elapses. The suspension is persisted first so a worker restart can
// find and recover the parked step.
func (e *Engine) await(
	ctx context.Context,
	hctx protocol.HandlerContext,
	state *models.StepState,
	handler protocol.StepHandler,
	aw *protocol.Await,
) (map[string]any, error) {
	deadline := time.Now().UTC().Add(aw.MaxWait)
	suspension := &models.Suspension{
		ExecutionID:   hctx.ExecutionID,
		StepID:        hctx.StepID,
		CorrelationID: aw.CorrelationID,
		Deadline:      deadline,
		CreatedAt:     time.Now().UTC(),
	}

	if err := e.persistence.Suspensions().Save(ctx, suspension); err != nil {
		return nil, err
	}

	inbox, unregister := e.router.Register(aw.CorrelationID)

	defer func() {
		unregister()

		if err := e.persistence.Suspensions().Delete(context.WithoutCancel(ctx), aw.CorrelationID); err != nil &&
			!persistence.IsSuspensionNotFound(err) {
			hctx.Logger.Warn("Failed to clear suspension", "correlation_id", aw.CorrelationID, "error", err)
		}
	}()

	hctx.Logger.Info("Step suspended",
		"correlation_id", aw.CorrelationID, "deadline", deadline)

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case event := <-inbox:
			outcome, err := handler.OnEvent(ctx, hctx, event)
			if err != nil {
				return nil, err
			}

			switch outcome.Disposition {
			case protocol.DispositionIgnore:
				continue
			case protocol.DispositionProgress:
				state.Progress = outcome.Progress

				continue
			case protocol.DispositionComplete:
				if !outcome.Success {
					return nil, fmt.Errorf("external job failed: %s", outcome.Message)
				}

				return outcome.Outputs, nil
			}
		case <-timer.C:
			return nil, fmt.Errorf("%w: correlation_id %s", ErrSuspensionTimeout, aw.CorrelationID)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *Engine) failStep(logger *slog.Logger, state *models.StepState, result stepResult, err error) stepResult {
	now := time.Now().UTC()
	state.Status = models.StepStatusFailed
	state.Error = err.Error()
	state.CompletedAt = &now
	result.err = err

	logger.Error("Step failed", "step_id", state.StepID, "policy", result.policy, "error", err)

	return result
}

func (e *Engine) completeStep(state *models.StepState, outputs map[string]any) {
	now := time.Now().UTC()
	state.Status = models.StepStatusCompleted
	state.Outputs = outputs
	state.CompletedAt = &now
}

func (e *Engine) skipStep(state *models.StepState, reason string) {
	now := time.Now().UTC()
	state.Status = models.StepStatusSkipped
	state.SkipReason = reason
	state.CompletedAt = &now
}

// pruneBranches force-skips every still-PENDING branch target except the
// one the conditional step selected.
func (e *Engine) pruneBranches(execution *models.Execution, target string, branches []string) {
	for _, branch := range branches {
		if branch == target {
			continue
		}

		state, ok := execution.Steps[branch]
		if !ok || state.Status != models.StepStatusPending {
			continue
		}

		e.skipStep(state, "branch not matched")
	}
}

// abort force-skips every non-terminal step and fails the execution.
func (e *Engine) abort(execution *models.Execution, reason string) {
	for _, state := range execution.Steps {
		if !state.Status.IsTerminal() {
			e.skipStep(state, "execution aborted")
		}
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.Error = reason
	execution.CompletedAt = &now
}

// finish resolves the workflow outputs map and closes out the execution.
func (e *Engine) finish(
	ctx context.Context,
	def *models.WorkflowDefinition,
	execution *models.Execution,
	stepOutputs map[string]map[string]any,
) error {
	if len(def.Outputs) > 0 {
		resolved, err := template.Resolve(def.Outputs, execution.Params, stepOutputs)
		if err != nil {
			e.abort(execution, fmt.Sprintf("outputs: %s", err))

			if saveErr := e.persistence.Executions().Save(ctx, execution); saveErr != nil {
				return saveErr
			}

			e.publishFailed(ctx, execution)

			return nil
		}

		execution.Outputs, _ = resolved.(map[string]any)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return err
	}

	e.publish(ctx, execution.ID, events.ExecutionFinished{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ExecutionFinishedEvent,
			Timestamp: now,
		},
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		Outputs:     execution.Outputs,
	})

	e.logger.Info("Execution completed", "execution_id", execution.ID)

	return nil
}

func (e *Engine) publishFailed(ctx context.Context, execution *models.Execution) {
	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ExecutionFailedEvent,
			Timestamp: time.Now().UTC(),
		},
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		Error:       execution.Error,
	})
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// branchDecision extracts the selected target and declared branch set
// from a completed conditional step.
func branchDecision(params, outputs map[string]any) (string, []string) {
	target, _ := outputs["target_step"].(string)

	raw, ok := params["branches"]
	if !ok {
		return target, nil
	}

	var branches []string

	switch typed := raw.(type) {
	case []string:
		branches = typed
	case []any:
		for _, item := range typed {
			if s, ok := item.(string); ok {
				branches = append(branches, s)
			}
		}
	}

	return target, branches
}
