package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buybloem/storefront-notifier/internal/domain"
)

func testMessage(to string) domain.OutboundMessage {
	return domain.OutboundMessage{
		Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: to},
		Channel:   domain.ChannelSMS,
		Text:      "hello",
	}
}

func TestClickatellProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody []gatewayMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messages":[{"apiMessageId":"msg-1","accepted":true,"to":"27821234567"}]}`))
	}))
	defer server.Close()

	p, err := NewClickatellProvider(server.URL, "key-123")
	if err != nil {
		t.Fatalf("NewClickatellProvider() error = %v", err)
	}

	resp, err := p.Send(context.Background(), testMessage("27821234567"))
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if gotAuth != "key-123" {
		t.Fatalf("Authorization = %q, want api key", gotAuth)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if resp.MessageID != "msg-1" {
		t.Fatalf("MessageID = %q, want msg-1", resp.MessageID)
	}
	if len(gotBody) != 1 {
		t.Fatalf("payload length = %d, want 1", len(gotBody))
	}
	if gotBody[0].To != "27821234567" || gotBody[0].Channel != "sms" || gotBody[0].Content != "hello" {
		t.Fatalf("payload = %+v", gotBody[0])
	}
}

func TestClickatellProviderSendBatchPayload(t *testing.T) {
	t.Parallel()

	var gotBody []gatewayMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	p, err := NewClickatellProvider(server.URL, "key-123")
	if err != nil {
		t.Fatalf("NewClickatellProvider() error = %v", err)
	}

	msgs := []domain.OutboundMessage{
		{Recipient: domain.Recipient{Role: domain.RoleVendor, Phone: "27830000001"}, Channel: domain.ChannelSMS, Text: "a"},
		{Recipient: domain.Recipient{Role: domain.RoleVendor, Phone: "27830000002"}, Channel: domain.ChannelWhatsApp, Text: "b"},
	}
	if _, err := p.SendBatch(context.Background(), msgs); err != nil {
		t.Fatalf("SendBatch() unexpected error: %v", err)
	}

	if len(gotBody) != 2 {
		t.Fatalf("payload length = %d, want 2", len(gotBody))
	}
	if gotBody[1].Channel != "whatsapp" {
		t.Fatalf("second payload channel = %q, want whatsapp", gotBody[1].Channel)
	}
}

func TestClickatellProviderSenderInPayload(t *testing.T) {
	t.Parallel()

	var rawBody []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawBody = nil
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	p, err := NewClickatellProvider(server.URL, "key-123")
	if err != nil {
		t.Fatalf("NewClickatellProvider() error = %v", err)
	}

	withSender := testMessage("27821234567")
	withSender.Sender = "27820000000"
	if _, err := p.Send(context.Background(), withSender); err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if rawBody[0]["from"] != "27820000000" {
		t.Fatalf("from = %v, want 27820000000", rawBody[0]["from"])
	}

	if _, err := p.Send(context.Background(), testMessage("27821234567")); err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if _, present := rawBody[0]["from"]; present {
		t.Fatalf("from should be omitted when sender is empty, payload = %v", rawBody[0])
	}
}

func TestClickatellProviderStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "server error is transient", statusCode: http.StatusBadGateway, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unauthorized is permanent", statusCode: http.StatusUnauthorized, wantTransient: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			p, err := NewClickatellProvider(server.URL, "key-123")
			if err != nil {
				t.Fatalf("NewClickatellProvider() error = %v", err)
			}

			_, err = p.Send(context.Background(), testMessage("27821234567"))
			if err == nil {
				t.Fatal("Send() expected error")
			}

			var gatewayErr *GatewayError
			if !errors.As(err, &gatewayErr) {
				t.Fatalf("error type = %T, want *GatewayError", err)
			}
			if gatewayErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", gatewayErr.StatusCode, tc.statusCode)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestClickatellProviderRejectsInvalidMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway should not be called for invalid input")
	}))
	defer server.Close()

	p, err := NewClickatellProvider(server.URL, "key-123")
	if err != nil {
		t.Fatalf("NewClickatellProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), domain.OutboundMessage{
		Recipient: domain.Recipient{Role: domain.RoleCustomer},
		Channel:   domain.ChannelSMS,
		Text:      "hello",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Send() error = %v, want ErrValidation", err)
	}
}

func TestNewClickatellProviderRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClickatellProvider(DefaultEndpoint, "  "); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
