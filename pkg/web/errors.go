package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(403).
		WithInstance(c.Path()).
		WithType("forbidden").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and persistence errors onto RFC 7807
// responses with stable type codes.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return typedNotFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return typedNotFound(c, "execution_not_found", "execution not found")

	case persistence.IsJobNotFound(err):
		return typedNotFound(c, "job_not_found", "job not found")

	case persistence.IsScheduleNotFound(err):
		return typedNotFound(c, "schedule_not_found", "schedule not found")

	case persistence.IsWebhookNotFound(err):
		return typedNotFound(c, "webhook_not_found", "webhook not found")

	case persistence.IsTriggerNotFound(err):
		return typedNotFound(c, "event_trigger_not_found", "event trigger not found")

	default:
		return internalError(c, err)
	}
}

func typedNotFound(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}
