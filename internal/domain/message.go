package domain

import (
	"fmt"
	"strings"
)

// Channel represents the gateway delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
)

func (c Channel) String() string { return string(c) }

// WireName returns the lowercase channel name used in gateway payloads.
func (c Channel) WireName() string { return strings.ToLower(string(c)) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Role determines which message template a recipient receives and where its
// phone number comes from.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Recipient is one notification target, derived transiently per dispatch.
type Recipient struct {
	Role        Role
	Phone       string
	DisplayName string
}

// OutboundMessage is one formatted message addressed to one recipient. The
// phone number is always in normalized form by the time a message exists.
// Sender is the optional origin number shown to the recipient; empty means
// the gateway picks its default origin.
type OutboundMessage struct {
	Recipient Recipient
	Channel   Channel
	Text      string
	Sender    string
}

func (m OutboundMessage) Validate() error {
	if !m.Recipient.Role.IsValid() {
		return fmt.Errorf("%w: invalid recipient role %q", ErrValidation, m.Recipient.Role)
	}
	if strings.TrimSpace(m.Recipient.Phone) == "" {
		return fmt.Errorf("%w: recipient phone is required", ErrValidation)
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, m.Channel)
	}
	if m.Text == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	return nil
}

// DispatchResult records the outcome of one send attempt for one message.
type DispatchResult struct {
	Recipient        Recipient
	Succeeded        bool
	ProviderResponse *string
	Error            *string
}

// DispatchOutcome is the full result of one dispatch, one entry per outbound
// message in resolver order. It may be empty.
type DispatchOutcome []DispatchResult

// RoleSucceeded reports whether at least one message for the role was sent
// and none of them failed.
func (o DispatchOutcome) RoleSucceeded(role Role) bool {
	attempted := false
	for _, result := range o {
		if result.Recipient.Role != role {
			continue
		}
		attempted = true
		if !result.Succeeded {
			return false
		}
	}
	return attempted
}

// ProviderConfig is a read-only settings snapshot borrowed for one dispatch.
type ProviderConfig struct {
	Enabled     bool
	SenderPhone string
}
