// Package dispatch orchestrates notification delivery for one business
// event: resolve recipients, send through the gateway provider, record
// outcomes, and annotate the order on success.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/buybloem/storefront-notifier/internal/observability"
	"github.com/buybloem/storefront-notifier/internal/phone"
	"github.com/buybloem/storefront-notifier/internal/provider"
	"github.com/buybloem/storefront-notifier/internal/ratelimit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver maps an event to its outbound messages.
type Resolver interface {
	Resolve(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error)
}

// OrderAnnotator appends an audit note to an order after a successful send.
type OrderAnnotator interface {
	AnnotateOrder(ctx context.Context, orderID int64, note string) error
}

// AttemptRecorder persists one delivery attempt for audit purposes.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error
}

const (
	notePlaced        = `"Order placed" SMS alert (to store owner) has been sent`
	notePaidCustomer  = `"Order PAID" SMS alert %s has been sent`
	notePaidVendors   = `"Order PAID" SMS alert to vendors has been sent`
	noteRefunded      = `"Order Refunded" SMS alert %s has been sent`
	failReasonPattern = "%s_error"
)

// Dispatcher runs one stateless resolve-send-report cycle per event. It
// never returns an error to the triggering business operation: every
// failure is logged and reported through the outcome.
type Dispatcher struct {
	resolver   Resolver
	provider   provider.Provider
	annotator  OrderAnnotator
	attempts   AttemptRecorder
	limiter    ratelimit.RateLimiter
	normalizer phone.Normalizer
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewDispatcher(
	resolver Resolver,
	gateway provider.Provider,
	annotator OrderAnnotator,
	attempts AttemptRecorder,
	limiter ratelimit.RateLimiter,
	normalizer phone.Normalizer,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Dispatcher, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		resolver:   resolver,
		provider:   gateway,
		annotator:  annotator,
		attempts:   attempts,
		limiter:    limiter,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// Dispatch handles one event. With the provider disabled it returns an empty
// outcome and touches nothing. Customer, vendor and admin sends are
// independent failure domains; vendor messages go out as one batch.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event, cfg domain.ProviderConfig) domain.DispatchOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(d.logger, ctx)

	if !cfg.Enabled {
		logger.Debug("notification provider disabled, skipping dispatch",
			zap.String("event", event.Kind.String()),
		)
		return domain.DispatchOutcome{}
	}

	if d.metrics != nil {
		d.metrics.IncDispatchInFlight(event.Kind.String())
		defer d.metrics.DecDispatchInFlight(event.Kind.String())
	}

	messages, err := d.resolver.Resolve(ctx, event)
	if err != nil {
		logger.Error("failed to resolve recipients, no notification sent",
			zap.String("event", event.Kind.String()),
			zap.Int64("orderId", event.OrderID),
			zap.Int64("customerId", event.CustomerID),
			zap.Error(err),
		)
		return domain.DispatchOutcome{}
	}
	if len(messages) == 0 {
		return domain.DispatchOutcome{}
	}

	sender := d.normalizer.Normalize(strings.TrimSpace(cfg.SenderPhone))
	for i := range messages {
		messages[i].Sender = sender
	}

	outcome := make(domain.DispatchOutcome, len(messages))
	vendorIndexes := make([]int, 0, len(messages))
	for i, msg := range messages {
		if msg.Recipient.Role == domain.RoleVendor {
			vendorIndexes = append(vendorIndexes, i)
			continue
		}
		outcome[i] = d.sendOne(ctx, logger, event, msg)
	}
	if len(vendorIndexes) > 0 {
		d.sendVendorBatch(ctx, logger, event, messages, vendorIndexes, outcome)
	}

	d.annotate(ctx, logger, event, messages, outcome)

	return outcome
}

func (d *Dispatcher) sendOne(ctx context.Context, logger *zap.Logger, event domain.Event, msg domain.OutboundMessage) domain.DispatchResult {
	resp, err := d.callProvider(ctx, msg.Channel, func() (*provider.Response, error) {
		return d.provider.Send(ctx, msg)
	})

	result := d.buildResult(msg, resp, err)
	d.recordAttempt(ctx, logger, event, msg, resp, err)
	d.observeSend(logger, event, msg, err)
	return result
}

// sendVendorBatch submits all vendor messages in one logical operation. A
// batch failure marks every vendor result failed but never blocks the
// customer or admin sends.
func (d *Dispatcher) sendVendorBatch(
	ctx context.Context,
	logger *zap.Logger,
	event domain.Event,
	messages []domain.OutboundMessage,
	indexes []int,
	outcome domain.DispatchOutcome,
) {
	batch := make([]domain.OutboundMessage, 0, len(indexes))
	for _, i := range indexes {
		batch = append(batch, messages[i])
	}

	resp, err := d.callProvider(ctx, domain.ChannelSMS, func() (*provider.Response, error) {
		return d.provider.SendBatch(ctx, batch)
	})

	for _, i := range indexes {
		outcome[i] = d.buildResult(messages[i], resp, err)
		d.recordAttempt(ctx, logger, event, messages[i], resp, err)
		d.observeSend(logger, event, messages[i], err)
	}
}

func (d *Dispatcher) callProvider(ctx context.Context, channel domain.Channel, send func() (*provider.Response, error)) (*provider.Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, channel.WireName()); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}
	start := d.now()
	resp, err := send()
	if d.metrics != nil {
		d.metrics.ObserveSendDuration(channel.WireName(), d.now().Sub(start))
	}
	return resp, err
}

func (d *Dispatcher) buildResult(msg domain.OutboundMessage, resp *provider.Response, err error) domain.DispatchResult {
	result := domain.DispatchResult{Recipient: msg.Recipient, Succeeded: err == nil}
	if resp != nil && resp.Body != "" {
		body := resp.Body
		result.ProviderResponse = &body
	}
	if err != nil {
		errText := err.Error()
		result.Error = &errText
	}
	return result
}

func (d *Dispatcher) observeSend(logger *zap.Logger, event domain.Event, msg domain.OutboundMessage, err error) {
	role := strings.ToLower(msg.Recipient.Role.String())
	if err == nil {
		if d.metrics != nil {
			d.metrics.IncMessageSent(role, msg.Channel.WireName())
		}
		logger.Info("notification sent",
			zap.String("event", event.Kind.String()),
			zap.String("role", role),
			zap.String("to", msg.Recipient.Phone),
		)
		return
	}

	reason := "permanent"
	if provider.IsTransient(err) {
		reason = "transient"
	}
	if d.metrics != nil {
		d.metrics.IncMessageFailed(role, msg.Channel.WireName(), fmt.Sprintf(failReasonPattern, reason))
	}
	logger.Error("notification send failed",
		zap.String("event", event.Kind.String()),
		zap.String("role", role),
		zap.String("to", msg.Recipient.Phone),
		zap.Error(err),
	)
}

func (d *Dispatcher) recordAttempt(ctx context.Context, logger *zap.Logger, event domain.Event, msg domain.OutboundMessage, resp *provider.Response, sendErr error) {
	if d.attempts == nil {
		return
	}

	attempt := domain.DeliveryAttempt{
		ID:        uuid.NewString(),
		EventKind: event.Kind,
		Role:      msg.Recipient.Role,
		Channel:   msg.Channel,
		Recipient: msg.Recipient.Phone,
		Succeeded: sendErr == nil,
		CreatedAt: d.now().UTC(),
	}
	if event.Kind.IsOrderEvent() {
		orderID := event.OrderID
		attempt.OrderID = &orderID
	}
	if resp != nil {
		statusCode := resp.StatusCode
		attempt.StatusCode = &statusCode
		if resp.Body != "" {
			body := resp.Body
			attempt.ResponseBody = &body
		}
	}
	if sendErr != nil {
		errText := sendErr.Error()
		attempt.Error = &errText
	}

	if err := d.attempts.RecordAttempt(ctx, attempt); err != nil {
		logger.Warn("failed to record delivery attempt",
			zap.String("event", event.Kind.String()),
			zap.String("to", msg.Recipient.Phone),
			zap.Error(err),
		)
	}
}

// annotate appends order audit notes for the logical sends that succeeded.
// The dispatcher never mutates order state itself; the annotator owns that.
func (d *Dispatcher) annotate(ctx context.Context, logger *zap.Logger, event domain.Event, messages []domain.OutboundMessage, outcome domain.DispatchOutcome) {
	if d.annotator == nil || !event.Kind.IsOrderEvent() {
		return
	}

	notes := make([]string, 0, 2)
	switch event.Kind {
	case domain.EventOrderPlaced:
		if outcome.RoleSucceeded(domain.RoleAdmin) {
			notes = append(notes, notePlaced)
		}
	case domain.EventOrderPaid:
		if outcome.RoleSucceeded(domain.RoleCustomer) {
			notes = append(notes, fmt.Sprintf(notePaidCustomer, customerDisplayName(messages)))
		}
		if outcome.RoleSucceeded(domain.RoleVendor) {
			notes = append(notes, notePaidVendors)
		}
	case domain.EventOrderRefunded:
		if outcome.RoleSucceeded(domain.RoleCustomer) {
			notes = append(notes, fmt.Sprintf(noteRefunded, customerDisplayName(messages)))
		}
	}

	for _, note := range notes {
		if err := d.annotator.AnnotateOrder(ctx, event.OrderID, note); err != nil {
			logger.Warn("failed to annotate order",
				zap.Int64("orderId", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

func customerDisplayName(messages []domain.OutboundMessage) string {
	for _, msg := range messages {
		if msg.Recipient.Role == domain.RoleCustomer {
			return msg.Recipient.DisplayName
		}
	}
	return ""
}

// TestSend delivers an operator-supplied test message and, unlike Dispatch,
// surfaces the failure directly.
func (d *Dispatcher) TestSend(ctx context.Context, cfg domain.ProviderConfig, to string, text string) (*provider.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: notification provider is disabled", domain.ErrValidation)
	}

	msg := domain.OutboundMessage{
		Recipient: domain.Recipient{Role: domain.RoleAdmin, Phone: d.normalizer.Normalize(strings.TrimSpace(to))},
		Channel:   domain.ChannelSMS,
		Text:      text,
		Sender:    d.normalizer.Normalize(strings.TrimSpace(cfg.SenderPhone)),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return d.callProvider(ctx, msg.Channel, func() (*provider.Response, error) {
		return d.provider.Send(ctx, msg)
	})
}
