package models

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"
)

const webhookSecretBytes = 32

// Webhook exposes a workflow to external callers through a shared-secret
// endpoint. Only the SHA-256 hash of the secret is stored; the plaintext is
// returned exactly once, at creation or rotation.
type Webhook struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	SecretHash string         `json:"-"`
	AllowedIPs []string       `json:"allowed_ips,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Enabled    bool           `json:"enabled"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// GenerateWebhookSecret produces a URL-safe random secret and its stored
// hash. The plaintext must be handed to the caller immediately; it is not
// recoverable afterwards.
func GenerateWebhookSecret() (secret, hash string, err error) {
	raw := make([]byte, webhookSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}

	secret = base64.RawURLEncoding.EncodeToString(raw)

	return secret, HashWebhookSecret(secret), nil
}

// HashWebhookSecret returns the hex-encoded SHA-256 digest of a secret.
func HashWebhookSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}

// ValidateSecret checks a presented secret in constant time. A webhook
// without a stored hash requires no secret and always passes.
func (w *Webhook) ValidateSecret(presented string) bool {
	if w.SecretHash == "" {
		return true
	}

	presentedHash := HashWebhookSecret(presented)

	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(w.SecretHash)) == 1
}

// AllowsIP checks the caller address against the exact-match allow list.
// An empty list means no restriction.
func (w *Webhook) AllowsIP(ip string) bool {
	if len(w.AllowedIPs) == 0 {
		return true
	}

	for _, allowed := range w.AllowedIPs {
		if allowed == ip {
			return true
		}
	}

	return false
}
