package payment

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
)

const (
	// SignatureHeader carries the shared secret hash on webhook calls.
	SignatureHeader = "verif-hash"

	EventChargeCompleted = "charge.completed"
)

// WebhookEvent is a provider notification
type WebhookEvent struct {
	Event string     `json:"event"`
	Data  Settlement `json:"data"`
}

// Actionable reports whether the event announces a successful charge.
func (e *WebhookEvent) Actionable() bool {
	return e.Event == EventChargeCompleted && e.Data.Successful() && e.Data.TxRef != ""
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var e WebhookEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &e, nil
}

// VerifyWebhookSignature compares the header value against the configured
// hash in constant time. An empty hash disables the check.
func VerifyWebhookSignature(header, hash string) bool {
	if hash == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(hash)) == 1
}
