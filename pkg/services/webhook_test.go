package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/persistence"
)

func webhookFixture(t *testing.T, store persistence.Persistence) (*Webhook, string) {
	t.Helper()

	workflows := NewWorkflow(store)

	created, err := workflows.Create(context.Background(), validDefinition())
	require.NoError(t, err)

	return NewWebhook(store), created.ID
}

func TestWebhookCreate_WithSecret(t *testing.T) {
	store := newTestStore(t)
	service, workflowID := webhookFixture(t, store)
	ctx := context.Background()

	webhook, secret, err := service.Create(ctx, CreateWebhookRequest{
		WorkflowID:    workflowID,
		RequireSecret: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, secret)
	assert.True(t, webhook.Enabled)
	assert.True(t, webhook.ValidateSecret(secret))

	// Later reads never expose the plaintext again, only the hash.
	stored, err := service.Get(ctx, webhook.ID)
	require.NoError(t, err)
	assert.True(t, stored.ValidateSecret(secret))
	assert.NotEqual(t, secret, stored.SecretHash)
}

func TestWebhookCreate_WithoutSecret(t *testing.T) {
	service, workflowID := webhookFixture(t, newTestStore(t))

	webhook, secret, err := service.Create(context.Background(), CreateWebhookRequest{
		WorkflowID: workflowID,
	})
	require.NoError(t, err)

	assert.Empty(t, secret)
	assert.True(t, webhook.ValidateSecret("anything"))
}

func TestWebhookCreate_Invalid(t *testing.T) {
	service, _ := webhookFixture(t, newTestStore(t))
	ctx := context.Background()

	_, _, err := service.Create(ctx, CreateWebhookRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, _, err = service.Create(ctx, CreateWebhookRequest{WorkflowID: "missing"})
	require.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWebhookRotateSecret(t *testing.T) {
	service, workflowID := webhookFixture(t, newTestStore(t))
	ctx := context.Background()

	webhook, oldSecret, err := service.Create(ctx, CreateWebhookRequest{
		WorkflowID:    workflowID,
		RequireSecret: true,
	})
	require.NoError(t, err)

	newSecret, err := service.RotateSecret(ctx, webhook.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldSecret, newSecret)

	rotated, err := service.Get(ctx, webhook.ID)
	require.NoError(t, err)
	assert.True(t, rotated.ValidateSecret(newSecret))
	assert.False(t, rotated.ValidateSecret(oldSecret))
}

func TestWebhookAuthorize(t *testing.T) {
	service, workflowID := webhookFixture(t, newTestStore(t))
	ctx := context.Background()

	webhook, secret, err := service.Create(ctx, CreateWebhookRequest{
		WorkflowID:    workflowID,
		AllowedIPs:    []string{"10.0.0.1"},
		RequireSecret: true,
	})
	require.NoError(t, err)

	assert.NoError(t, service.Authorize(webhook, secret, "10.0.0.1"))
	assert.Error(t, service.Authorize(webhook, "wrong", "10.0.0.1"))
	assert.Error(t, service.Authorize(webhook, secret, "203.0.113.7"))

	disabled, err := service.Update(ctx, webhook.ID, webhook.AllowedIPs, nil, false)
	require.NoError(t, err)
	assert.Error(t, service.Authorize(disabled, secret, "10.0.0.1"))
}
