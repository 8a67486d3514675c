package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWebhookSecret(t *testing.T) {
	secret, hash, err := GenerateWebhookSecret()
	require.NoError(t, err)

	assert.NotEmpty(t, secret)
	assert.Equal(t, HashWebhookSecret(secret), hash)

	// Two generations never collide.
	other, _, err := GenerateWebhookSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestValidateSecret(t *testing.T) {
	secret, hash, err := GenerateWebhookSecret()
	require.NoError(t, err)

	webhook := &Webhook{SecretHash: hash}

	assert.True(t, webhook.ValidateSecret(secret))
	assert.False(t, webhook.ValidateSecret("wrong-secret"))
	assert.False(t, webhook.ValidateSecret(""))
}

func TestValidateSecret_NoHashStored(t *testing.T) {
	webhook := &Webhook{}

	assert.True(t, webhook.ValidateSecret(""))
	assert.True(t, webhook.ValidateSecret("anything"))
}

func TestAllowsIP(t *testing.T) {
	tests := []struct {
		name       string
		allowedIPs []string
		ip         string
		expected   bool
	}{
		{
			name:     "empty list allows everyone",
			ip:       "203.0.113.7",
			expected: true,
		},
		{
			name:       "listed ip",
			allowedIPs: []string{"10.0.0.1", "10.0.0.2"},
			ip:         "10.0.0.2",
			expected:   true,
		},
		{
			name:       "unlisted ip",
			allowedIPs: []string{"10.0.0.1"},
			ip:         "203.0.113.7",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			webhook := &Webhook{AllowedIPs: tt.allowedIPs}
			assert.Equal(t, tt.expected, webhook.AllowsIP(tt.ip))
		})
	}
}
