package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/buybloem/storefront-notifier/internal/observability"
	"github.com/buybloem/storefront-notifier/internal/provider"
)

type DispatchService interface {
	Dispatch(ctx context.Context, event domain.Event, cfg domain.ProviderConfig) domain.DispatchOutcome
	TestSend(ctx context.Context, cfg domain.ProviderConfig, to string, text string) (*provider.Response, error)
}

type NoteReader interface {
	NotesByOrderID(ctx context.Context, orderID int64) ([]domain.OrderNote, error)
}

type AttemptReader interface {
	AttemptsByOrderID(ctx context.Context, orderID int64) ([]domain.DeliveryAttempt, error)
}

type EventHandler struct {
	dispatcher DispatchService
	notes      NoteReader
	attempts   AttemptReader
	cfg        domain.ProviderConfig
}

func NewEventHandler(dispatcher DispatchService, notes NoteReader, attempts AttemptReader, cfg domain.ProviderConfig) (*EventHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if notes == nil {
		return nil, fmt.Errorf("note reader is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt reader is required")
	}
	return &EventHandler{dispatcher: dispatcher, notes: notes, attempts: attempts, cfg: cfg}, nil
}

func RegisterEventRoutes(router fiber.Router, dispatcher DispatchService, notes NoteReader, attempts AttemptReader, cfg domain.ProviderConfig) error {
	h, err := NewEventHandler(dispatcher, notes, attempts, cfg)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/events", h.DispatchEvent)
	v1.Post("/test", h.TestSend)
	v1.Get("/orders/:id/notes", h.ListOrderNotes)
	v1.Get("/orders/:id/attempts", h.ListOrderAttempts)

	return nil
}

type eventRequest struct {
	Kind       string `json:"kind"`
	OrderID    int64  `json:"orderId"`
	CustomerID int64  `json:"customerId"`
}

type dispatchResultResponse struct {
	Role      string  `json:"role"`
	Recipient string  `json:"recipient"`
	Succeeded bool    `json:"succeeded"`
	Error     *string `json:"error,omitempty"`
}

type dispatchResponse struct {
	Kind    string                   `json:"kind"`
	Results []dispatchResultResponse `json:"results"`
}

type testSendRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type orderNoteResponse struct {
	ID        string    `json:"id"`
	OrderID   int64     `json:"orderId"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

type deliveryAttemptResponse struct {
	ID        string    `json:"id"`
	EventKind string    `json:"eventKind"`
	Role      string    `json:"role"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Succeeded bool      `json:"succeeded"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *EventHandler) DispatchEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseEventKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}

	event := domain.Event{
		Kind:       kind,
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
	}
	if err := event.Validate(); err != nil {
		return toHTTPError(err)
	}

	ctx := observability.WithCorrelationID(c.Context(), requestCorrelationID(c))
	outcome := h.dispatcher.Dispatch(ctx, event, h.cfg)

	results := make([]dispatchResultResponse, 0, len(outcome))
	for _, result := range outcome {
		results = append(results, dispatchResultResponse{
			Role:      result.Recipient.Role.String(),
			Recipient: result.Recipient.Phone,
			Succeeded: result.Succeeded,
			Error:     result.Error,
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dispatchResponse{
		Kind:    kind.String(),
		Results: results,
	})
}

func (h *EventHandler) TestSend(c *fiber.Ctx) error {
	var req testSendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := observability.WithCorrelationID(c.Context(), requestCorrelationID(c))
	resp, err := h.dispatcher.TestSend(ctx, h.cfg, strings.TrimSpace(req.Phone), req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"succeeded": false,
			"error":     err.Error(),
		})
	}

	body := fiber.Map{"succeeded": true}
	if resp != nil && resp.MessageID != "" {
		body["messageId"] = resp.MessageID
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func (h *EventHandler) ListOrderNotes(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return toHTTPError(err)
	}

	notes, err := h.notes.NotesByOrderID(c.Context(), orderID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]orderNoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, orderNoteResponse{
			ID:        note.ID,
			OrderID:   note.OrderID,
			Note:      note.Note,
			CreatedAt: note.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *EventHandler) ListOrderAttempts(c *fiber.Ctx) error {
	orderID, err := parseOrderID(c)
	if err != nil {
		return toHTTPError(err)
	}

	attempts, err := h.attempts.AttemptsByOrderID(c.Context(), orderID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]deliveryAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, deliveryAttemptResponse{
			ID:        attempt.ID,
			EventKind: attempt.EventKind.String(),
			Role:      attempt.Role.String(),
			Channel:   attempt.Channel.String(),
			Recipient: attempt.Recipient,
			Succeeded: attempt.Succeeded,
			Error:     attempt.Error,
			CreatedAt: attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func parseOrderID(c *fiber.Ctx) (int64, error) {
	raw := strings.TrimSpace(c.Params("id"))
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderID <= 0 {
		return 0, fmt.Errorf("%w: order id must be a positive integer", domain.ErrValidation)
	}
	return orderID, nil
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	return uuid.NewString()
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
