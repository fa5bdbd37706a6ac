package application

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

// Payment outcome handlers feed externally-published events back into the
// booking orchestrator, decoupling payment completion from the original
// request. Expected race outcomes (duplicate delivery, a booking already
// resolved by the reaper) are acknowledged, not retried.

type PaymentCompletedHandler struct {
	bookings *BookingService
	log      *zap.Logger
}

func NewPaymentCompletedHandler(bookings *BookingService, log *zap.Logger) *PaymentCompletedHandler {
	return &PaymentCompletedHandler{bookings: bookings, log: log}
}

func (h *PaymentCompletedHandler) Handle(ctx context.Context, body []byte) error {
	var env domain.EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.log.Warn("payment.completed: undecodable envelope", zap.Error(err))
		return nil
	}
	var payload domain.PaymentCompletedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		h.log.Warn("payment.completed: undecodable payload",
			zap.String("event_id", env.EventID.String()), zap.Error(err))
		return nil
	}

	err := h.bookings.ConfirmBooking(ctx, payload.BookingID, payload.ProviderRef)
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.KindConflict, domain.KindInvalidState, domain.KindNotFound:
		// The booking already reached a terminal state; duplicate or late
		// delivery, nothing left to do.
		h.log.Warn("payment.completed not applied",
			zap.String("booking_id", payload.BookingID.String()), zap.Error(err))
		return nil
	default:
		return err
	}
}

type PaymentFailedHandler struct {
	bookings *BookingService
	log      *zap.Logger
}

func NewPaymentFailedHandler(bookings *BookingService, log *zap.Logger) *PaymentFailedHandler {
	return &PaymentFailedHandler{bookings: bookings, log: log}
}

func (h *PaymentFailedHandler) Handle(ctx context.Context, body []byte) error {
	var env domain.EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.log.Warn("payment.failed: undecodable envelope", zap.Error(err))
		return nil
	}
	var payload domain.PaymentFailedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		h.log.Warn("payment.failed: undecodable payload",
			zap.String("event_id", env.EventID.String()), zap.Error(err))
		return nil
	}

	reason := "payment failed"
	if payload.ErrorMessage != "" {
		reason = "payment failed: " + payload.ErrorMessage
	}

	err := h.bookings.CancelBooking(ctx, payload.BookingID, reason, "payment_failed")
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.KindConflict, domain.KindInvalidState, domain.KindNotFound:
		h.log.Warn("payment.failed not applied",
			zap.String("booking_id", payload.BookingID.String()), zap.Error(err))
		return nil
	default:
		return err
	}
}
