// Package clusterjob implements the built-in "cluster_job" action: it
// registers a delegated job with the lifecycle manager and suspends the
// step until the cluster reports a terminal status for it.
package clusterjob

import (
	"context"
	"fmt"
	"time"

	"github.com/stratoml/strato/pkg/events"
	"github.com/stratoml/strato/pkg/job"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
	"github.com/stratoml/strato/pkg/protocol"
)

const ActionID = "cluster_job"

// DefaultMaxWait bounds how long a step waits for the cluster completion
// event before timing out under its failure policy.
const DefaultMaxWait = 30 * time.Minute

// Handler delegates work to cluster infrastructure. Params:
//
//	job_type:         one of the supported job types
//	name:             human-readable job name (defaults to the step id)
//	cluster_id:       target cluster reference (optional)
//	config:           opaque payload handed to the cluster (optional)
//	max_wait_seconds: suspension deadline override (optional)
type Handler struct {
	manager *job.Manager
}

func NewHandler(manager *job.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Validate(params map[string]any) []error {
	var errs []error

	jobType, _ := params["job_type"].(string)
	if jobType == "" {
		errs = append(errs, fmt.Errorf("cluster_job action requires a job_type param"))
	} else if !models.ValidJobType(models.JobType(jobType)) {
		errs = append(errs, fmt.Errorf("unknown job_type %q", jobType))
	}

	if raw, ok := params["max_wait_seconds"]; ok {
		if seconds, ok := toFloat(raw); !ok || seconds <= 0 {
			errs = append(errs, fmt.Errorf("max_wait_seconds must be a positive number"))
		}
	}

	return errs
}

func (h *Handler) Execute(ctx context.Context, hctx protocol.HandlerContext) (*protocol.Result, error) {
	jobType, _ := hctx.Params["job_type"].(string)

	name, _ := hctx.Params["name"].(string)
	if name == "" {
		name = hctx.StepID
	}

	clusterID, _ := hctx.Params["cluster_id"].(string)
	config, _ := hctx.Params["config"].(map[string]any)
	sourceID := hctx.ExecutionID + "/" + hctx.StepID

	maxWait := DefaultMaxWait
	if raw, ok := hctx.Params["max_wait_seconds"]; ok {
		if seconds, ok := toFloat(raw); ok && seconds > 0 {
			maxWait = time.Duration(seconds * float64(time.Second))
		}
	}

	// A resumed step may already have a job in flight. Re-await on it
	// instead of delegating a duplicate; the cluster's completion event
	// carries the original job id.
	existing, err := h.manager.GetBySource(ctx, "workflow-step", sourceID)
	if err == nil && !existing.Status.IsTerminal() {
		hctx.Logger.Info("Re-awaiting in-flight cluster job",
			"job_id", existing.ID, "status", existing.Status, "max_wait", maxWait)

		return &protocol.Result{
			Await: &protocol.Await{
				CorrelationID: existing.ID,
				MaxWait:       maxWait,
			},
		}, nil
	}

	if err != nil && !persistence.IsJobNotFound(err) {
		return nil, fmt.Errorf("failed to look up cluster job: %w", err)
	}

	created, err := h.manager.Create(ctx, job.CreateJobRequest{
		Name:      name,
		Type:      models.JobType(jobType),
		Source:    "workflow-step",
		SourceID:  sourceID,
		ClusterID: clusterID,
		Config:    config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster job: %w", err)
	}

	if _, err := h.manager.Queue(ctx, created.ID); err != nil {
		return nil, err
	}

	hctx.Logger.Info("Cluster job delegated",
		"job_id", created.ID, "job_type", jobType, "max_wait", maxWait)

	return &protocol.Result{
		Await: &protocol.Await{
			CorrelationID: created.ID,
			MaxWait:       maxWait,
		},
	}, nil
}

// OnEvent classifies a platform event addressed to the delegated job and
// mirrors the reported status onto the job record.
func (h *Handler) OnEvent(ctx context.Context, hctx protocol.HandlerContext, event *events.PlatformEvent) (protocol.EventOutcome, error) {
	if event.IsMetadata() {
		return protocol.EventOutcome{Disposition: protocol.DispositionIgnore}, nil
	}

	jobID := event.CorrelationID()
	content := event.Content()

	switch content.Status {
	case "running", "started":
		if _, err := h.manager.Start(ctx, jobID); err != nil {
			hctx.Logger.Warn("Failed to mark job running", "job_id", jobID, "error", err)
		}

		progress, _ := toFloat(content.Result["progress"])

		return protocol.EventOutcome{
			Disposition: protocol.DispositionProgress,
			Progress:    progress,
		}, nil

	case "succeeded", "success", "completed":
		if _, err := h.manager.Complete(ctx, jobID); err != nil {
			hctx.Logger.Warn("Failed to mark job succeeded", "job_id", jobID, "error", err)
		}

		return protocol.EventOutcome{
			Disposition: protocol.DispositionComplete,
			Success:     true,
			Outputs:     completionOutputs(jobID, content),
		}, nil

	case "failed", "failure", "error":
		message := content.Message
		if message == "" {
			message = "cluster job failed"
		}

		if _, err := h.manager.Fail(ctx, jobID, message); err != nil {
			hctx.Logger.Warn("Failed to mark job failed", "job_id", jobID, "error", err)
		}

		return protocol.EventOutcome{
			Disposition: protocol.DispositionComplete,
			Success:     false,
			Message:     message,
		}, nil

	default:
		return protocol.EventOutcome{Disposition: protocol.DispositionIgnore}, nil
	}
}

func completionOutputs(jobID string, content events.EventContent) map[string]any {
	outputs := map[string]any{"job_id": jobID}

	for key, value := range content.Result {
		outputs[key] = value
	}

	return outputs
}

func toFloat(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
