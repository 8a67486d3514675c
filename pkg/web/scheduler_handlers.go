package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/services"
)

// --- Schedules ---

func (h *APIHandlers) CreateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.schedules.Create(c.Context(), req.Schedule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetSchedule(c fiber.Ctx) error {
	schedule, err := h.schedules.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schedule)
}

func (h *APIHandlers) ListSchedules(c fiber.Ctx) error {
	opts, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	page, err := h.schedules.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) UpdateSchedule(c fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.schedules.Update(c.Context(), c.Params("id"), req.Schedule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	if err := h.schedules.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PauseSchedule(c fiber.Ctx) error {
	schedule, err := h.schedules.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schedule)
}

func (h *APIHandlers) ResumeSchedule(c fiber.Ctx) error {
	schedule, err := h.schedules.Resume(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schedule)
}

func (h *APIHandlers) PreviewSchedule(c fiber.Ctx) error {
	count := 0

	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid count parameter: "+err.Error())
		}

		count = parsed
	}

	runs, err := h.schedules.Preview(c.Context(), c.Params("id"), count)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"next_runs": runs})
}

// --- Webhooks ---

func (h *APIHandlers) CreateWebhook(c fiber.Ctx) error {
	var req CreateWebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	webhook, secret, err := h.webhooks.Create(c.Context(), services.CreateWebhookRequest{
		WorkflowID:    req.WorkflowID,
		AllowedIPs:    req.AllowedIPs,
		Params:        req.Params,
		RequireSecret: req.RequireSecret,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(WebhookCreatedResponse{
		Webhook: webhook,
		Secret:  secret,
	})
}

func (h *APIHandlers) GetWebhook(c fiber.Ctx) error {
	webhook, err := h.webhooks.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(webhook)
}

func (h *APIHandlers) ListWebhooks(c fiber.Ctx) error {
	opts, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	page, err := h.webhooks.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) UpdateWebhook(c fiber.Ctx) error {
	var req UpdateWebhookRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	webhook, err := h.webhooks.Update(c.Context(), c.Params("id"), req.AllowedIPs, req.Params, req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(webhook)
}

func (h *APIHandlers) DeleteWebhook(c fiber.Ctx) error {
	if err := h.webhooks.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RotateWebhookSecret(c fiber.Ctx) error {
	secret, err := h.webhooks.RotateSecret(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SecretResponse{Secret: secret})
}

// TriggerWebhook is the inbound endpoint cluster tooling calls. The
// caller authenticates with the X-Webhook-Secret header; the source
// address is checked against the webhook's allow list.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	webhook, err := h.webhooks.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := h.webhooks.Authorize(webhook, c.Get("X-Webhook-Secret"), c.IP()); err != nil {
		return forbidden(c, "webhook authorization failed")
	}

	var body map[string]any

	// An empty or malformed body is allowed; the webhook's configured
	// params still apply.
	_ = c.Bind().JSON(&body)

	params := make(map[string]any, len(webhook.Params)+len(body))

	for key, value := range webhook.Params {
		params[key] = value
	}

	for key, value := range body {
		params[key] = value
	}

	execution, err := h.executions.Trigger(c.Context(), webhook.WorkflowID, params, events.TriggerSourceWebhook, webhook.ID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

// --- Event triggers ---

func (h *APIHandlers) SupportedEventTypes(c fiber.Ctx) error {
	return c.JSON(h.triggers.SupportedEventTypes())
}

func (h *APIHandlers) CreateEventTrigger(c fiber.Ctx) error {
	var req CreateEventTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.triggers.Create(c.Context(), req.Trigger())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetEventTrigger(c fiber.Ctx) error {
	trigger, err := h.triggers.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(trigger)
}

func (h *APIHandlers) ListEventTriggers(c fiber.Ctx) error {
	opts, err := pageOptions(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	page, err := h.triggers.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) UpdateEventTrigger(c fiber.Ctx) error {
	var req CreateEventTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.triggers.Update(c.Context(), c.Params("id"), req.Trigger())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteEventTrigger(c fiber.Ctx) error {
	if err := h.triggers.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
