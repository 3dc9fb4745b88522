// Package resolve maps storefront business events to the set of outbound
// messages they produce.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/buybloem/storefront-notifier/internal/phone"
	"go.uber.org/zap"
)

// Lookup collaborators. The resolver reads domain records through these and
// never owns them.
type CustomerLookup interface {
	CustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
}

type OrderLookup interface {
	OrderByID(ctx context.Context, id int64) (*domain.Order, error)
}

type VendorLookup interface {
	VendorByID(ctx context.Context, id int64) (*domain.Vendor, error)
}

type AddressLookup interface {
	AddressByID(ctx context.Context, id int64) (*domain.Address, error)
}

// Lookups bundles the read-side collaborators the resolver depends on.
type Lookups struct {
	Customers CustomerLookup
	Orders    OrderLookup
	Vendors   VendorLookup
	Addresses AddressLookup
}

const (
	registeredCustomerTemplate = "Hi %s, welcome to %s. Your account has been successfully registered"
	placedAdminTemplate        = "New order #%d was placed for the total amount %.2f"
	paidCustomerTemplate       = "Dear valued shopper, your order #%d of R%.2f on %s has been PAID."
	paidVendorTemplate         = "Hello vendor, Order #%d has been PAID. Items: %s (R%.2f)"
	paidAdminTemplate          = "Hi Admin, new order #%d R%.2f has been PAID"
	refundedCustomerTemplate   = "Dear valued customer, your refund request for order #%d of R%.2f been processed"
)

// Resolver derives (role, phone, text) tuples from a business event.
type Resolver struct {
	lookups    Lookups
	normalizer phone.Normalizer
	storeName  string
	ownerPhone string
	logger     *zap.Logger
}

func NewResolver(
	lookups Lookups,
	normalizer phone.Normalizer,
	storeName string,
	ownerPhone string,
	logger *zap.Logger,
) (*Resolver, error) {
	if lookups.Customers == nil || lookups.Orders == nil || lookups.Vendors == nil || lookups.Addresses == nil {
		return nil, fmt.Errorf("all lookup collaborators are required")
	}
	if strings.TrimSpace(storeName) == "" {
		return nil, fmt.Errorf("store name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		lookups:    lookups,
		normalizer: normalizer,
		storeName:  storeName,
		ownerPhone: normalizer.Normalize(strings.TrimSpace(ownerPhone)),
		logger:     logger,
	}, nil
}

// Resolve returns the outbound messages for one event, possibly none.
// Recipients whose phone number cannot be resolved are skipped, not fatal.
func (r *Resolver) Resolve(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	switch event.Kind {
	case domain.EventCustomerRegistered:
		return r.resolveCustomerRegistered(ctx, event)
	case domain.EventOrderPlaced:
		return r.resolveOrderPlaced(ctx, event)
	case domain.EventOrderPaid:
		return r.resolveOrderPaid(ctx, event)
	case domain.EventOrderRefunded:
		return r.resolveOrderRefunded(ctx, event)
	default:
		return nil, fmt.Errorf("%w: unsupported event kind %q", domain.ErrValidation, event.Kind)
	}
}

func (r *Resolver) resolveCustomerRegistered(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	customer, err := r.lookups.Customers.CustomerByID(ctx, event.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer %d: %w", event.CustomerID, err)
	}

	number := r.normalizer.Normalize(strings.TrimSpace(customer.Phone))
	if number == "" {
		r.logger.Info("customer has no phone on file, skipping welcome message",
			zap.Int64("customerId", customer.ID),
		)
		return nil, nil
	}

	return []domain.OutboundMessage{{
		Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: number, DisplayName: customer.Email},
		Channel:   domain.ChannelSMS,
		Text:      fmt.Sprintf(registeredCustomerTemplate, customer.Username, r.storeName),
	}}, nil
}

func (r *Resolver) resolveOrderPlaced(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	order, err := r.lookups.Orders.OrderByID(ctx, event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %d: %w", event.OrderID, err)
	}
	if r.ownerPhone == "" {
		r.logger.Warn("store owner phone is not configured, skipping order placed alert",
			zap.Int64("orderId", order.ID),
		)
		return nil, nil
	}

	return []domain.OutboundMessage{{
		Recipient: domain.Recipient{Role: domain.RoleAdmin, Phone: r.ownerPhone},
		Channel:   domain.ChannelSMS,
		Text:      fmt.Sprintf(placedAdminTemplate, order.ID, order.Total),
	}}, nil
}

// resolveOrderPaid runs three independent sub-resolutions: customer, vendor
// fan-out, and admin. A missing datum in one must not block the others.
func (r *Resolver) resolveOrderPaid(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	order, err := r.lookups.Orders.OrderByID(ctx, event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %d: %w", event.OrderID, err)
	}

	messages := make([]domain.OutboundMessage, 0, 2+len(order.Items))

	if msg, ok := r.paidCustomerMessage(ctx, order); ok {
		messages = append(messages, msg)
	}
	messages = append(messages, r.paidVendorMessages(ctx, order)...)
	if r.ownerPhone != "" {
		messages = append(messages, domain.OutboundMessage{
			Recipient: domain.Recipient{Role: domain.RoleAdmin, Phone: r.ownerPhone},
			Channel:   domain.ChannelSMS,
			Text:      fmt.Sprintf(paidAdminTemplate, order.ID, order.Total),
		})
	}

	return messages, nil
}

func (r *Resolver) paidCustomerMessage(ctx context.Context, order *domain.Order) (domain.OutboundMessage, bool) {
	customer, err := r.lookups.Customers.CustomerByID(ctx, order.CustomerID)
	if err != nil {
		r.logger.Warn("failed to look up customer for paid order, skipping customer message",
			zap.Int64("orderId", order.ID),
			zap.Int64("customerId", order.CustomerID),
			zap.Error(err),
		)
		return domain.OutboundMessage{}, false
	}

	number := r.normalizer.Normalize(strings.TrimSpace(customer.Phone))
	if number == "" {
		r.logger.Info("customer has no phone on file, skipping paid message",
			zap.Int64("orderId", order.ID),
			zap.Int64("customerId", customer.ID),
		)
		return domain.OutboundMessage{}, false
	}

	return domain.OutboundMessage{
		Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: number, DisplayName: customer.Email},
		Channel:   domain.ChannelSMS,
		Text:      fmt.Sprintf(paidCustomerTemplate, order.ID, order.Total, r.storeName),
	}, true
}

// paidVendorMessages builds one message per distinct vendor in the order's
// line items, in first-appearance order. Vendors with no resolvable address
// are skipped.
func (r *Resolver) paidVendorMessages(ctx context.Context, order *domain.Order) []domain.OutboundMessage {
	vendorIDs := order.VendorIDs()
	messages := make([]domain.OutboundMessage, 0, len(vendorIDs))

	for _, vendorID := range vendorIDs {
		vendor, err := r.lookups.Vendors.VendorByID(ctx, vendorID)
		if err != nil {
			r.logger.Warn("failed to look up vendor, skipping vendor message",
				zap.Int64("orderId", order.ID),
				zap.Int64("vendorId", vendorID),
				zap.Error(err),
			)
			continue
		}

		address, err := r.lookups.Addresses.AddressByID(ctx, vendor.AddressID)
		if err != nil {
			r.logger.Warn("failed to look up vendor address, skipping vendor message",
				zap.Int64("orderId", order.ID),
				zap.Int64("vendorId", vendorID),
				zap.Error(err),
			)
			continue
		}

		number := r.normalizer.Normalize(strings.TrimSpace(address.Phone))
		if number == "" {
			r.logger.Warn("vendor address has no phone, skipping vendor message",
				zap.Int64("orderId", order.ID),
				zap.Int64("vendorId", vendorID),
			)
			continue
		}

		items := order.ItemsByVendor(vendorID)
		names := make([]string, 0, len(items))
		itemsTotal := 0.0
		for _, item := range items {
			names = append(names, item.ProductName)
			itemsTotal += item.PriceInclTax
		}

		messages = append(messages, domain.OutboundMessage{
			Recipient: domain.Recipient{Role: domain.RoleVendor, Phone: number, DisplayName: vendor.Name},
			Channel:   domain.ChannelSMS,
			Text:      fmt.Sprintf(paidVendorTemplate, order.ID, strings.Join(names, ", "), itemsTotal),
		})
	}

	return messages
}

func (r *Resolver) resolveOrderRefunded(ctx context.Context, event domain.Event) ([]domain.OutboundMessage, error) {
	order, err := r.lookups.Orders.OrderByID(ctx, event.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %d: %w", event.OrderID, err)
	}

	customer, err := r.lookups.Customers.CustomerByID(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("customer not found for refunded order, skipping message",
				zap.Int64("orderId", order.ID),
				zap.Int64("customerId", order.CustomerID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up customer %d: %w", order.CustomerID, err)
	}

	number := r.normalizer.Normalize(strings.TrimSpace(customer.Phone))
	if number == "" {
		r.logger.Info("customer has no phone on file, skipping refund message",
			zap.Int64("orderId", order.ID),
			zap.Int64("customerId", customer.ID),
		)
		return nil, nil
	}

	return []domain.OutboundMessage{{
		Recipient: domain.Recipient{Role: domain.RoleCustomer, Phone: number, DisplayName: customer.Email},
		Channel:   domain.ChannelSMS,
		Text:      fmt.Sprintf(refundedCustomerTemplate, order.ID, order.Total),
	}}, nil
}
