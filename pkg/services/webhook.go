package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/persistence"
)

// Webhook manages inbound webhook configurations. Plaintext secrets are
// returned exactly once, at creation or rotation; only hashes persist.
type Webhook struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewWebhook(store persistence.Persistence) *Webhook {
	return &Webhook{
		persistence: store,
		validator:   validator.New(),
	}
}

// CreateWebhookRequest carries the caller-supplied webhook fields.
type CreateWebhookRequest struct {
	WorkflowID    string `validate:"required"`
	AllowedIPs    []string
	Params        map[string]any
	RequireSecret bool
}

// Create stores a new webhook. When RequireSecret is set the plaintext
// secret comes back alongside the webhook and is never retrievable again.
func (s *Webhook) Create(ctx context.Context, req CreateWebhookRequest) (*models.Webhook, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := s.persistence.Workflows().GetByID(ctx, req.WorkflowID); err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	webhook := &models.Webhook{
		ID:         uuid.New().String(),
		WorkflowID: req.WorkflowID,
		AllowedIPs: req.AllowedIPs,
		Params:     req.Params,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var secret string

	if req.RequireSecret {
		var err error

		secret, webhook.SecretHash, err = models.GenerateWebhookSecret()
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate webhook secret: %w", err)
		}
	}

	if err := s.persistence.Webhooks().Save(ctx, webhook); err != nil {
		return nil, "", err
	}

	return webhook, secret, nil
}

// Get fetches one webhook. The secret hash never leaves the service.
func (s *Webhook) Get(ctx context.Context, id string) (*models.Webhook, error) {
	return s.persistence.Webhooks().GetByID(ctx, id)
}

// List pages stored webhooks.
func (s *Webhook) List(ctx context.Context, opts persistence.ListOptions) (*persistence.Page[*models.Webhook], error) {
	return s.persistence.Webhooks().List(ctx, opts)
}

// Update replaces the allow list, params and enabled flag. The secret is
// untouched; use RotateSecret to change it.
func (s *Webhook) Update(ctx context.Context, id string, allowedIPs []string, params map[string]any, enabled bool) (*models.Webhook, error) {
	webhook, err := s.persistence.Webhooks().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	webhook.AllowedIPs = allowedIPs
	webhook.Params = params
	webhook.Enabled = enabled
	webhook.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Webhooks().Save(ctx, webhook); err != nil {
		return nil, err
	}

	return webhook, nil
}

// Delete removes a webhook permanently.
func (s *Webhook) Delete(ctx context.Context, id string) error {
	return s.persistence.Webhooks().Delete(ctx, id)
}

// RotateSecret invalidates the prior secret and returns the new
// plaintext exactly once.
func (s *Webhook) RotateSecret(ctx context.Context, id string) (string, error) {
	webhook, err := s.persistence.Webhooks().GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	secret, hash, err := models.GenerateWebhookSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	webhook.SecretHash = hash
	webhook.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Webhooks().Save(ctx, webhook); err != nil {
		return "", err
	}

	return secret, nil
}

// Authorize checks the caller's secret and source address against the
// webhook's configuration.
func (s *Webhook) Authorize(webhook *models.Webhook, presentedSecret, callerIP string) error {
	if !webhook.Enabled {
		return fmt.Errorf("%w: webhook %s is disabled", ErrInvalidRequest, webhook.ID)
	}

	if !webhook.AllowsIP(callerIP) {
		return fmt.Errorf("%w: address %s is not allowed", ErrInvalidRequest, callerIP)
	}

	if !webhook.ValidateSecret(presentedSecret) {
		return fmt.Errorf("%w: invalid webhook secret", ErrInvalidRequest)
	}

	return nil
}
