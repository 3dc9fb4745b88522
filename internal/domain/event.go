package domain

import (
	"fmt"
	"strings"
)

// EventKind identifies the storefront business event that triggered a dispatch.
type EventKind string

const (
	EventCustomerRegistered EventKind = "CUSTOMER_REGISTERED"
	EventOrderPlaced        EventKind = "ORDER_PLACED"
	EventOrderPaid          EventKind = "ORDER_PAID"
	EventOrderRefunded      EventKind = "ORDER_REFUNDED"
)

func (k EventKind) String() string { return string(k) }

func (k EventKind) IsValid() bool {
	switch k {
	case EventCustomerRegistered, EventOrderPlaced, EventOrderPaid, EventOrderRefunded:
		return true
	}
	return false
}

func ParseEventKindFromString(s string) (EventKind, error) {
	k := EventKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid event kind %q", ErrValidation, s)
	}
	return k, nil
}

// IsOrderEvent reports whether the event kind refers to an order record.
func (k EventKind) IsOrderEvent() bool {
	return k == EventOrderPlaced || k == EventOrderPaid || k == EventOrderRefunded
}

// Event is one storefront business event. It is immutable once constructed
// and consumed by exactly one dispatch.
type Event struct {
	Kind       EventKind
	OrderID    int64
	CustomerID int64
}

func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: invalid event kind %q", ErrValidation, e.Kind)
	}
	if e.Kind == EventCustomerRegistered {
		if e.CustomerID <= 0 {
			return fmt.Errorf("%w: customerId is required for %s", ErrValidation, e.Kind)
		}
		return nil
	}
	if e.OrderID <= 0 {
		return fmt.Errorf("%w: orderId is required for %s", ErrValidation, e.Kind)
	}
	return nil
}
