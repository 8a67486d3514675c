// Package postgresql provides the durable PostgreSQL persistence backend.
// Entities are stored as JSONB documents alongside the columns the
// repositories filter on; every save is a single-row upsert, so a status
// transition and its timestamp side effects commit atomically.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	workflows   *WorkflowRepository
	executions  *ExecutionRepository
	suspensions *SuspensionRepository
	jobs        *JobRepository
	schedules   *ScheduleRepository
	webhooks    *WebhookRepository
	triggers    *EventTriggerRepository
}

// NewPersistence connects, migrates, and returns the backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		workflows:   &WorkflowRepository{db: database},
		executions:  &ExecutionRepository{db: database},
		suspensions: &SuspensionRepository{db: database},
		jobs:        &JobRepository{db: database},
		schedules:   &ScheduleRepository{db: database},
		webhooks:    &WebhookRepository{db: database},
		triggers:    &EventTriggerRepository{db: database},
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository         { return p.workflows }
func (p *Persistence) Executions() persistence.ExecutionRepository       { return p.executions }
func (p *Persistence) Suspensions() persistence.SuspensionRepository     { return p.suspensions }
func (p *Persistence) Jobs() persistence.JobRepository                   { return p.jobs }
func (p *Persistence) Schedules() persistence.ScheduleRepository         { return p.schedules }
func (p *Persistence) Webhooks() persistence.WebhookRepository           { return p.webhooks }
func (p *Persistence) EventTriggers() persistence.EventTriggerRepository { return p.triggers }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status VARCHAR(50) NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_created_at ON executions(created_at);

			CREATE TABLE suspensions (
				correlation_id TEXT PRIMARY KEY,
				execution_id TEXT NOT NULL,
				step_id TEXT NOT NULL,
				deadline TIMESTAMP WITH TIME ZONE NOT NULL,
				document JSONB NOT NULL
			);
			CREATE INDEX idx_suspensions_deadline ON suspensions(deadline);

			CREATE TABLE jobs (
				id TEXT PRIMARY KEY,
				type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				source VARCHAR(255) NOT NULL,
				source_id VARCHAR(255),
				cluster_id VARCHAR(255),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX idx_jobs_status ON jobs(status);
			CREATE INDEX idx_jobs_source ON jobs(source, source_id);
			CREATE INDEX idx_jobs_cluster_id ON jobs(cluster_id);

			CREATE TABLE schedules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status VARCHAR(50) NOT NULL,
				enabled BOOLEAN NOT NULL,
				next_run_at TIMESTAMP WITH TIME ZONE,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX idx_schedules_next_run_at ON schedules(next_run_at);

			CREATE TABLE webhooks (
				id TEXT PRIMARY KEY,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE event_triggers (
				id TEXT PRIMARY KEY,
				event_type VARCHAR(255) NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
			CREATE INDEX idx_event_triggers_event_type ON event_triggers(event_type);
		`,
	}
}
