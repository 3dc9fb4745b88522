package provider

import (
	"context"

	"github.com/buybloem/storefront-notifier/internal/domain"
)

// Provider is the outbound delivery port to the SMS/WhatsApp gateway.
// SendBatch submits all messages in one logical operation; implementations
// must attempt every message even when some fail.
type Provider interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (*Response, error)
	SendBatch(ctx context.Context, msgs []domain.OutboundMessage) (*Response, error)
}

// Response stores gateway call metadata for audit and persistence.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
