// Package main provides the strato API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/stratoml/strato/pkg/eventbus"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/services"
	"github.com/stratoml/strato/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence)
	executionService := services.NewExecution(a.persistence, a.eventBus)
	scheduleService := services.NewSchedule(a.persistence)
	webhookService := services.NewWebhook(a.persistence)
	triggerService := services.NewEventTrigger(a.persistence)
	jobManager := job.NewManager(a.persistence.Jobs(), a.logger)

	handlers := web.NewAPIHandlers(
		workflowService,
		executionService,
		scheduleService,
		webhookService,
		triggerService,
		jobManager,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Strato API")
	})

	app.Get("/health", handlers.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Post("/validate", handlers.ValidateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	e := app.Group("/executions")
	e.Post("/", handlers.TriggerExecution)
	e.Get("/", handlers.ListExecutions)
	e.Get("/:id", handlers.GetExecution)

	j := app.Group("/jobs")
	j.Post("/", handlers.CreateJob)
	j.Get("/", handlers.ListJobs)
	j.Get("/active", handlers.ActiveJobs)
	j.Get("/pending", handlers.PendingJobs)
	j.Get("/:id", handlers.GetJob)
	j.Delete("/:id", handlers.DeleteJob)
	j.Get("/:id/can-retry", handlers.JobCanRetry)
	j.Post("/:id/start", handlers.StartJob)
	j.Post("/:id/complete", handlers.CompleteJob)
	j.Post("/:id/fail", handlers.FailJob)
	j.Post("/:id/cancel", handlers.CancelJob)
	j.Post("/:id/retry", handlers.RetryJob)
	j.Post("/:id/timeout", handlers.TimeoutJob)

	app.Get("/clusters/:clusterId/jobs", handlers.JobsByCluster)

	s := app.Group("/schedules")
	s.Post("/", handlers.CreateSchedule)
	s.Get("/", handlers.ListSchedules)
	s.Get("/:id", handlers.GetSchedule)
	s.Put("/:id", handlers.UpdateSchedule)
	s.Delete("/:id", handlers.DeleteSchedule)
	s.Post("/:id/pause", handlers.PauseSchedule)
	s.Post("/:id/resume", handlers.ResumeSchedule)
	s.Get("/:id/preview", handlers.PreviewSchedule)

	wh := app.Group("/webhooks")
	wh.Post("/", handlers.CreateWebhook)
	wh.Get("/", handlers.ListWebhooks)
	wh.Get("/:id", handlers.GetWebhook)
	wh.Put("/:id", handlers.UpdateWebhook)
	wh.Delete("/:id", handlers.DeleteWebhook)
	wh.Post("/:id/rotate-secret", handlers.RotateWebhookSecret)
	wh.Post("/:id/trigger", handlers.TriggerWebhook)

	app.Get("/event-types", handlers.SupportedEventTypes)

	t := app.Group("/event-triggers")
	t.Post("/", handlers.CreateEventTrigger)
	t.Get("/", handlers.ListEventTriggers)
	t.Get("/:id", handlers.GetEventTrigger)
	t.Put("/:id", handlers.UpdateEventTrigger)
	t.Delete("/:id", handlers.DeleteEventTrigger)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
