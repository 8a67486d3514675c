// Package file provides a JSON-file persistence backend, used for
// development and tests. One file per entity under the root directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratoml/strato/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root        string
	workflows   *WorkflowRepository
	executions  *ExecutionRepository
	suspensions *SuspensionRepository
	jobs        *JobRepository
	schedules   *ScheduleRepository
	webhooks    *WebhookRepository
	triggers    *EventTriggerRepository
}

// NewPersistence creates a file backend rooted at the given directory.
// Accepts a bare path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		workflows:   &WorkflowRepository{root: cleanRoot},
		executions:  &ExecutionRepository{root: cleanRoot},
		suspensions: &SuspensionRepository{root: cleanRoot},
		jobs:        &JobRepository{root: cleanRoot},
		schedules:   &ScheduleRepository{root: cleanRoot},
		webhooks:    &WebhookRepository{root: cleanRoot},
		triggers:    &EventTriggerRepository{root: cleanRoot},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository         { return p.workflows }
func (p *Persistence) Executions() persistence.ExecutionRepository       { return p.executions }
func (p *Persistence) Suspensions() persistence.SuspensionRepository     { return p.suspensions }
func (p *Persistence) Jobs() persistence.JobRepository                   { return p.jobs }
func (p *Persistence) Schedules() persistence.ScheduleRepository         { return p.schedules }
func (p *Persistence) Webhooks() persistence.WebhookRepository           { return p.webhooks }
func (p *Persistence) EventTriggers() persistence.EventTriggerRepository { return p.triggers }

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for the file backend.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID rejects ids that would escape the storage directory.
func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

func writeJSON(root, dir, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	entityDir := filepath.Join(root, dir)
	if err := os.MkdirAll(entityDir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", dir, id, err)
	}

	if err := os.WriteFile(filepath.Join(entityDir, id+".json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", dir, id, err)
	}

	return nil
}

func readJSON(root, dir, id string, out any, notFound error) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(root, dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}

		return fmt.Errorf("failed to read %s %s: %w", dir, id, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", dir, id, err)
	}

	return nil
}

func readAll[T any](root, dir string) ([]*T, error) {
	entityDir := filepath.Join(root, dir)

	entries, err := os.ReadDir(entityDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	items := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(entityDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		item := new(T)
		if err := json.Unmarshal(data, item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", entry.Name(), err)
		}

		items = append(items, item)
	}

	return items, nil
}

func remove(root, dir, id string, notFound error) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(root, dir, id+".json"))
	if os.IsNotExist(err) {
		return notFound
	}

	return err
}
