package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/stratoml/strato/pkg/dag"
	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/services"
)

type APIHandlers struct {
	workflows  *services.Workflow
	executions *services.Execution
	schedules  *services.Schedule
	webhooks   *services.Webhook
	triggers   *services.EventTrigger
	jobs       *job.Manager
	validator  *validator.Validate
}

func NewAPIHandlers(
	workflows *services.Workflow,
	executions *services.Execution,
	schedules *services.Schedule,
	webhooks *services.Webhook,
	triggers *services.EventTrigger,
	jobs *job.Manager,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflows:  workflows,
		executions: executions,
		schedules:  schedules,
		webhooks:   webhooks,
		triggers:   triggers,
		jobs:       jobs,
		validator:  validate,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, ok := h.workflows.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !ok {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":      status,
		"persistence": message,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// pageOptions parses the shared page/page_size query parameters.
func pageOptions(c fiber.Ctx) (persistence.ListOptions, error) {
	opts := persistence.ListOptions{}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return opts, err
		}

		opts.Page = page
	}

	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return opts, err
		}

		opts.PageSize = size
	}

	return opts, nil
}

// --- Workflows ---

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	opts, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	page, err := h.workflows.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	if err := dag.ValidateDefinitionJSON(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflows.Create(c.Context(), req.Definition())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	if err := dag.ValidateDefinitionJSON(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflows.Update(c.Context(), c.Params("id"), req.Definition())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	if err := dag.ValidateDefinitionJSON(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	def := req.Definition()

	batches, err := h.workflows.Validate(c.Context(), def)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ValidateWorkflowResponse{
		Valid:   true,
		Draft:   len(def.Steps) == 0,
		Batches: batches,
	})
}

// --- Executions ---

func (h *APIHandlers) TriggerExecution(c fiber.Ctx) error {
	var req TriggerExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executions.Trigger(c.Context(), req.WorkflowID, req.Params, events.TriggerSourceAPI, "")
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	base, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	opts := persistence.ListExecutionsOptions{
		WorkflowID: c.Query("workflow_id"),
		Status:     models.ExecutionStatus(c.Query("status")),
		Page:       base.Page,
		PageSize:   base.PageSize,
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid from timestamp: "+err.Error())
		}

		opts.From = &from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "invalid to timestamp: "+err.Error())
		}

		opts.To = &to
	}

	page, err := h.executions.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

// --- Jobs ---

func (h *APIHandlers) CreateJob(c fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.jobs.Create(c.Context(), job.CreateJobRequest{
		Name:      req.Name,
		Type:      models.JobType(req.Type),
		Source:    req.Source,
		SourceID:  req.SourceID,
		ClusterID: req.ClusterID,
		Config:    req.Config,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	found, err := h.jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) ListJobs(c fiber.Ctx) error {
	base, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	if source := c.Query("source"); source != "" {
		found, err := h.jobs.GetBySource(c.Context(), source, c.Query("source_id"))
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(found)
	}

	page, err := h.jobs.List(c.Context(), persistence.ListJobsOptions{
		Type:      models.JobType(c.Query("type")),
		Status:    models.JobStatus(c.Query("status")),
		ClusterID: c.Query("cluster_id"),
		Page:      base.Page,
		PageSize:  base.PageSize,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) DeleteJob(c fiber.Ctx) error {
	if err := h.jobs.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActiveJobs(c fiber.Ctx) error {
	jobs, err := h.jobs.Active(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(jobs)
}

func (h *APIHandlers) PendingJobs(c fiber.Ctx) error {
	jobs, err := h.jobs.Pending(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(jobs)
}

func (h *APIHandlers) JobsByCluster(c fiber.Ctx) error {
	jobs, err := h.jobs.ByCluster(c.Context(), c.Params("clusterId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(jobs)
}

func (h *APIHandlers) JobCanRetry(c fiber.Ctx) error {
	found, err := h.jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CanRetryResponse{
		JobID:      found.ID,
		RetryCount: found.RetryCount,
		CanRetry:   job.CanRetry(found),
	})
}

func (h *APIHandlers) StartJob(c fiber.Ctx) error {
	return h.jobTransition(c, h.jobs.Start)
}

func (h *APIHandlers) CompleteJob(c fiber.Ctx) error {
	return h.jobTransition(c, h.jobs.Complete)
}

func (h *APIHandlers) FailJob(c fiber.Ctx) error {
	var req FailJobRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	failed, err := h.jobs.Fail(c.Context(), c.Params("id"), req.ErrorMessage)
	if err != nil {
		return h.jobTransitionError(c, err)
	}

	return c.JSON(failed)
}

func (h *APIHandlers) CancelJob(c fiber.Ctx) error {
	return h.jobTransition(c, h.jobs.Cancel)
}

func (h *APIHandlers) RetryJob(c fiber.Ctx) error {
	return h.jobTransition(c, h.jobs.Retry)
}

func (h *APIHandlers) TimeoutJob(c fiber.Ctx) error {
	return h.jobTransition(c, h.jobs.Timeout)
}

func (h *APIHandlers) jobTransition(
	c fiber.Ctx,
	transition func(ctx context.Context, id string) (*models.Job, error),
) error {
	transitioned, err := transition(c.Context(), c.Params("id"))
	if err != nil {
		return h.jobTransitionError(c, err)
	}

	return c.JSON(transitioned)
}

// jobTransitionError distinguishes state machine rejections from other
// failures: an invalid transition is a conflict, not a bad request.
func (h *APIHandlers) jobTransitionError(c fiber.Ctx, err error) error {
	if errors.Is(err, job.ErrInvalidTransition) || errors.Is(err, job.ErrRetriesExhausted) {
		return handleServiceError(c, services.NewValidationError("job_transition", "conflict", err.Error(), services.ErrJobTransition))
	}

	return handleServiceError(c, err)
}
