package domain

import "time"

// DeliveryAttempt records a single gateway send for audit purposes.
type DeliveryAttempt struct {
	ID           string
	EventKind    EventKind
	OrderID      *int64
	Role         Role
	Channel      Channel
	Recipient    string
	Succeeded    bool
	StatusCode   *int
	ResponseBody *string
	Error        *string
	CreatedAt    time.Time
}
