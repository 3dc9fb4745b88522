package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/buybloem/storefront-notifier/internal/phone"
	"github.com/buybloem/storefront-notifier/internal/provider"
)

type fakeResolver struct {
	resolveFn func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	return f.resolveFn(ctx, event)
}

type fakeProvider struct {
	sendFn      func(ctx context.Context, msg domain.OutboundMessage) (*provider.Response, error)
	sendBatchFn func(ctx context.Context, msgs []domain.OutboundMessage) (*provider.Response, error)

	sendCalls  []domain.OutboundMessage
	batchCalls [][]domain.OutboundMessage
}

func (f *fakeProvider) Send(ctx context.Context, msg domain.OutboundMessage) (*provider.Response, error) {
	f.sendCalls = append(f.sendCalls, msg)
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.Response{StatusCode: 202, Body: "ok"}, nil
}

func (f *fakeProvider) SendBatch(ctx context.Context, msgs []domain.OutboundMessage) (*provider.Response, error) {
	f.batchCalls = append(f.batchCalls, msgs)
	if f.sendBatchFn != nil {
		return f.sendBatchFn(ctx, msgs)
	}
	return &provider.Response{StatusCode: 202, Body: "ok"}, nil
}

type fakeAnnotator struct {
	notes map[int64][]string
}

func (f *fakeAnnotator) AnnotateOrder(ctx context.Context, orderID int64, note string) error {
	if f.notes == nil {
		f.notes = make(map[int64][]string)
	}
	f.notes[orderID] = append(f.notes[orderID], note)
	return nil
}

type fakeRecorder struct {
	attempts []domain.DeliveryAttempt
}

func (f *fakeRecorder) RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func enabledConfig() domain.ProviderConfig {
	return domain.ProviderConfig{Enabled: true}
}

func paidMessages() []domain.OutboundMessage {
	return []domain.OutboundMessage{
		{Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: "27711112222", DisplayName: "shopper@example.com"}, Channel: domain.ChannelSMS, Text: "customer"},
		{Recipient: domain.Recipient{Role: domain.RoleVendor, Phone: "27833334444", DisplayName: "Flora"}, Channel: domain.ChannelSMS, Text: "vendor a"},
		{Recipient: domain.Recipient{Role: domain.RoleVendor, Phone: "27855556666", DisplayName: "Petals"}, Channel: domain.ChannelSMS, Text: "vendor b"},
		{Recipient: domain.Recipient{Role: domain.RoleAdmin, Phone: "27834445555"}, Channel: domain.ChannelSMS, Text: "admin"},
	}
}

func newTestDispatcher(t *testing.T, resolver Resolver, gateway provider.Provider, annotator OrderAnnotator, recorder AttemptRecorder) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(resolver, gateway, annotator, recorder, nil, phone.NewNormalizer(phone.DefaultRule()), nil, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func TestDispatchDisabledIsNoOp(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		t.Fatal("resolver should not run when provider is disabled")
		return nil, nil
	}}

	d := newTestDispatcher(t, resolver, gateway, nil, nil)

	for _, kind := range []domain.EventKind{domain.EventCustomerRegistered, domain.EventOrderPlaced, domain.EventOrderPaid, domain.EventOrderRefunded} {
		outcome := d.Dispatch(context.Background(), domain.Event{Kind: kind, OrderID: 1, CustomerID: 1}, domain.ProviderConfig{Enabled: false})
		if len(outcome) != 0 {
			t.Fatalf("outcome for %s = %d results, want empty", kind, len(outcome))
		}
	}
	if len(gateway.sendCalls) != 0 || len(gateway.batchCalls) != 0 {
		t.Fatal("disabled dispatch must issue zero gateway calls")
	}
}

func TestDispatchSendsVendorsAsOneBatch(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return paidMessages(), nil
	}}
	annotator := &fakeAnnotator{}
	recorder := &fakeRecorder{}

	d := newTestDispatcher(t, resolver, gateway, annotator, recorder)
	outcome := d.Dispatch(context.Background(), domain.Event{Kind: domain.EventOrderPaid, OrderID: 100}, enabledConfig())

	if len(outcome) != 4 {
		t.Fatalf("outcome length = %d, want 4", len(outcome))
	}
	for i, result := range outcome {
		if !result.Succeeded {
			t.Fatalf("result %d failed: %+v", i, result)
		}
	}

	if len(gateway.sendCalls) != 2 {
		t.Fatalf("single sends = %d, want customer and admin", len(gateway.sendCalls))
	}
	if len(gateway.batchCalls) != 1 || len(gateway.batchCalls[0]) != 2 {
		t.Fatalf("batch calls = %v, want one batch of two vendor messages", gateway.batchCalls)
	}

	// outcome order must follow resolver order
	if outcome[0].Recipient.Role != domain.RoleCustomer || outcome[1].Recipient.Role != domain.RoleVendor ||
		outcome[2].Recipient.Role != domain.RoleVendor || outcome[3].Recipient.Role != domain.RoleAdmin {
		t.Fatalf("outcome roles out of order: %+v", outcome)
	}

	notes := annotator.notes[100]
	if len(notes) != 2 {
		t.Fatalf("order notes = %v, want customer and vendors notes", notes)
	}
	if !strings.Contains(notes[0], "shopper@example.com") {
		t.Fatalf("customer note = %q, want customer email", notes[0])
	}
	if !strings.Contains(notes[1], "to vendors") {
		t.Fatalf("vendor note = %q", notes[1])
	}

	if len(recorder.attempts) != 4 {
		t.Fatalf("recorded attempts = %d, want 4", len(recorder.attempts))
	}
	if recorder.attempts[0].OrderID == nil || *recorder.attempts[0].OrderID != 100 {
		t.Fatalf("attempt order id = %v, want 100", recorder.attempts[0].OrderID)
	}
}

func TestDispatchStampsSenderOnOutboundMessages(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
			return paidMessages(), nil
		},
	}
	gateway := &fakeProvider{}
	d := newTestDispatcher(t, resolver, gateway, &fakeAnnotator{}, &fakeRecorder{})

	cfg := domain.ProviderConfig{Enabled: true, SenderPhone: "0820000000"}
	d.Dispatch(context.Background(), domain.Event{Kind: domain.EventOrderPaid, OrderID: 7}, cfg)

	for _, msg := range gateway.sendCalls {
		if msg.Sender != "27820000000" {
			t.Errorf("single send sender = %q, want normalized 27820000000", msg.Sender)
		}
	}
	for _, batch := range gateway.batchCalls {
		for _, msg := range batch {
			if msg.Sender != "27820000000" {
				t.Errorf("batch send sender = %q, want normalized 27820000000", msg.Sender)
			}
		}
	}

	gateway = &fakeProvider{}
	d = newTestDispatcher(t, resolver, gateway, &fakeAnnotator{}, &fakeRecorder{})
	d.Dispatch(context.Background(), domain.Event{Kind: domain.EventOrderPaid, OrderID: 7}, enabledConfig())
	for _, msg := range gateway.sendCalls {
		if msg.Sender != "" {
			t.Errorf("sender = %q, want empty when not configured", msg.Sender)
		}
	}
}

func TestDispatchVendorBatchFailureIsIndependent(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{
		sendBatchFn: func(ctx context.Context, msgs []domain.OutboundMessage) (*provider.Response, error) {
			return nil, &provider.GatewayError{StatusCode: 502, Message: "gateway down", Transient: true}
		},
	}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return paidMessages(), nil
	}}
	annotator := &fakeAnnotator{}

	d := newTestDispatcher(t, resolver, gateway, annotator, nil)
	outcome := d.Dispatch(context.Background(), domain.Event{Kind: domain.EventOrderPaid, OrderID: 100}, enabledConfig())

	if len(gateway.sendCalls) != 2 {
		t.Fatalf("customer and admin sends = %d, want 2 despite vendor batch failure", len(gateway.sendCalls))
	}
	if !outcome[0].Succeeded || !outcome[3].Succeeded {
		t.Fatal("customer and admin results should succeed")
	}
	if outcome[1].Succeeded || outcome[2].Succeeded {
		t.Fatal("vendor results should be failed")
	}
	if outcome[1].Error == nil || !strings.Contains(*outcome[1].Error, "gateway down") {
		t.Fatalf("vendor result error = %v", outcome[1].Error)
	}

	notes := annotator.notes[100]
	if len(notes) != 1 || !strings.Contains(notes[0], "shopper@example.com") {
		t.Fatalf("notes = %v, want only the customer note", notes)
	}
}

func TestDispatchSingleSendFailureReported(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("connection refused")
	gateway := &fakeProvider{
		sendFn: func(ctx context.Context, msg domain.OutboundMessage) (*provider.Response, error) {
			return nil, sendErr
		},
	}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return []domain.OutboundMessage{
			{Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: "27711112222", DisplayName: "c@example.com"}, Channel: domain.ChannelSMS, Text: "refund"},
		}, nil
	}}
	annotator := &fakeAnnotator{}

	d := newTestDispatcher(t, resolver, gateway, annotator, nil)
	outcome := d.Dispatch(context.Background(), domain.Event{Kind: domain.EventOrderRefunded, OrderID: 7}, enabledConfig())

	if len(outcome) != 1 || outcome[0].Succeeded {
		t.Fatalf("outcome = %+v, want one failed result", outcome)
	}
	if len(annotator.notes) != 0 {
		t.Fatalf("notes = %v, want none for failed send", annotator.notes)
	}
}

func TestDispatchResolverErrorSwallowed(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return nil, errors.New("customer not found")
	}}

	d := newTestDispatcher(t, resolver, gateway, nil, nil)
	outcome := d.Dispatch(context.Background(), domain.Event{Kind: domain.EventCustomerRegistered, CustomerID: 3}, enabledConfig())

	if len(outcome) != 0 {
		t.Fatalf("outcome = %+v, want empty", outcome)
	}
	if len(gateway.sendCalls) != 0 {
		t.Fatal("no gateway call should be made when resolution fails")
	}
}

func TestDispatchZeroMessagesZeroCalls(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return nil, nil // customer without phone
	}}

	d := newTestDispatcher(t, resolver, gateway, nil, nil)
	outcome := d.Dispatch(context.Background(), domain.Event{Kind: domain.EventCustomerRegistered, CustomerID: 2}, enabledConfig())

	if len(outcome) != 0 || len(gateway.sendCalls) != 0 || len(gateway.batchCalls) != 0 {
		t.Fatal("no messages resolved should mean no gateway calls and an empty outcome")
	}
}

func TestTestSendSurfacesFailure(t *testing.T) {
	t.Parallel()

	gateway := &fakeProvider{
		sendFn: func(ctx context.Context, msg domain.OutboundMessage) (*provider.Response, error) {
			return nil, &provider.GatewayError{StatusCode: 401, Message: "bad api key"}
		},
	}
	resolver := &fakeResolver{resolveFn: func(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
		return nil, nil
	}}

	d := newTestDispatcher(t, resolver, gateway, nil, nil)

	cfg := domain.ProviderConfig{Enabled: true, SenderPhone: "0820000000"}
	_, err := d.TestSend(context.Background(), cfg, "0821234567", "test message")
	if err == nil {
		t.Fatal("TestSend() expected gateway error")
	}
	if len(gateway.sendCalls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(gateway.sendCalls))
	}
	if gateway.sendCalls[0].Recipient.Phone != "27821234567" {
		t.Fatalf("test send phone = %q, want normalized", gateway.sendCalls[0].Recipient.Phone)
	}
	if gateway.sendCalls[0].Sender != "27820000000" {
		t.Fatalf("test send sender = %q, want normalized 27820000000", gateway.sendCalls[0].Sender)
	}

	_, err = d.TestSend(context.Background(), domain.ProviderConfig{Enabled: false}, "0821234567", "test")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("disabled TestSend() error = %v, want ErrValidation", err)
	}
}
