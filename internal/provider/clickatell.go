package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

// DefaultEndpoint is the Clickatell One API message endpoint.
const DefaultEndpoint = "https://platform.clickatell.com/v1/message"

type gatewayMessage struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
}

type gatewayResponse struct {
	Messages []struct {
		APIMessageID string `json:"apiMessageId"`
		Accepted     bool   `json:"accepted"`
		To           string `json:"to"`
	} `json:"messages"`
}

// ClickatellProvider sends messages to the Clickatell One HTTP API: a JSON
// array of {channel, content, to} objects, authenticated with an API key in
// the Authorization header.
type ClickatellProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewClickatellProvider(endpoint, apiKey string) (*ClickatellProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewClickatellProviderWithClient(endpoint, apiKey, client)
}

func NewClickatellProviderWithClient(endpoint, apiKey string, client *resty.Client) (*ClickatellProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gateway api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &ClickatellProvider{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *ClickatellProvider) Send(ctx context.Context, msg domain.OutboundMessage) (*Response, error) {
	return p.SendBatch(ctx, []domain.OutboundMessage{msg})
}

func (p *ClickatellProvider) SendBatch(ctx context.Context, msgs []domain.OutboundMessage) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	payload := make([]gatewayMessage, 0, len(msgs))
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid outbound message: %w", err)
		}
		payload = append(payload, gatewayMessage{
			Channel: msg.Channel.WireName(),
			Content: msg.Text,
			To:      msg.Recipient.Phone,
			From:    strings.TrimSpace(msg.Sender),
		})
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(p.endpoint)
	if err != nil {
		return nil, &GatewayError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &GatewayError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  apiMessageID(response.Body()),
		}, nil
	}

	return nil, &GatewayError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// apiMessageID extracts the first message id from the gateway response body.
func apiMessageID(body []byte) string {
	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Messages) == 0 {
		return ""
	}
	return strings.TrimSpace(parsed.Messages[0].APIMessageID)
}
