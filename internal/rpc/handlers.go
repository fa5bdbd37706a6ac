package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/application"
	"github.com/seatlock/ticketing-go/internal/domain"
)

func decode[T any](payload json.RawMessage) (T, error) {
	var req T
	if len(payload) == 0 {
		return req, domain.Validationf("request body is required")
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, domain.Validationf("malformed request body: %v", err)
	}
	return req, nil
}

type seedSeatsRequest struct {
	EventID    uuid.UUID `json:"eventId"`
	PriceCents []int64   `json:"priceCents"`
}

type seatIDRequest struct {
	SeatID uuid.UUID `json:"seatId"`
}

// RegisterInventoryHandlers wires the seat inventory commands onto the
// server.
func RegisterInventoryHandlers(s *Server, svc *application.InventoryService) {
	s.Handle("check-availability", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[seatSelectionRequest](payload)
		if err != nil {
			return nil, err
		}
		res, err := svc.CheckAvailability(ctx, req.SeatIDs)
		if err != nil {
			return nil, err
		}
		return availabilityResponse{PricedSeats: res.Seats, Total: res.TotalCents}, nil
	})

	s.Handle("reserve", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[reserveRequest](payload)
		if err != nil {
			return nil, err
		}
		res, err := svc.Reserve(ctx, application.ReserveInput{
			SeatIDs:   req.SeatIDs,
			BuyerID:   req.BuyerID,
			BookingID: req.BookingID,
			Deadline:  req.Deadline,
		})
		if err != nil {
			return nil, err
		}
		return availabilityResponse{PricedSeats: res.Seats, Total: res.TotalCents}, nil
	})

	s.Handle("confirm", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[confirmSeatsRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, svc.Confirm(ctx, req.SeatIDs, req.BuyerID, req.BookingID)
	})

	s.Handle("release", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[releaseSeatsRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, svc.Release(ctx, req.SeatIDs, req.BookingID)
	})

	s.Handle("seed-seats", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[seedSeatsRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.SeedSeats(ctx, req.EventID, req.PriceCents)
	})

	s.Handle("get-seat", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[seatIDRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.GetSeat(ctx, req.SeatID)
	})
}

type createBookingRequest struct {
	BuyerID uuid.UUID   `json:"buyerId"`
	EventID uuid.UUID   `json:"eventId"`
	SeatIDs []uuid.UUID `json:"seatIds"`
}

type confirmBookingRequest struct {
	BookingID  uuid.UUID `json:"bookingId"`
	PaymentRef string    `json:"paymentRef"`
}

type cancelBookingRequest struct {
	BookingID uuid.UUID `json:"bookingId"`
	Reason    string    `json:"reason"`
}

type bookingIDRequest struct {
	BookingID uuid.UUID `json:"bookingId"`
}

type buyerIDRequest struct {
	BuyerID uuid.UUID `json:"buyerId"`
}

// RegisterBookingHandlers wires the booking orchestrator commands onto the
// server. Confirm and cancel are also reachable here for operators; the
// usual trigger is the payment event consumer.
func RegisterBookingHandlers(s *Server, svc *application.BookingService) {
	s.Handle("create", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[createBookingRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.CreateBooking(ctx, application.CreateBookingInput{
			BuyerID: req.BuyerID,
			EventID: req.EventID,
			SeatIDs: req.SeatIDs,
		})
	})

	s.Handle("confirm", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[confirmBookingRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, svc.ConfirmBooking(ctx, req.BookingID, req.PaymentRef)
	})

	s.Handle("cancel", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[cancelBookingRequest](payload)
		if err != nil {
			return nil, err
		}
		reason := req.Reason
		if reason == "" {
			reason = "cancelled by buyer"
		}
		return nil, svc.CancelBooking(ctx, req.BookingID, reason, "manual")
	})

	s.Handle("get", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[bookingIDRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.GetBooking(ctx, req.BookingID)
	})

	s.Handle("list-for-buyer", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[buyerIDRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.ListBookingsForBuyer(ctx, req.BuyerID)
	})
}

type providerCallbackRequest struct {
	SessionID    string `json:"sessionId"`
	Succeeded    bool   `json:"succeeded"`
	ProviderRef  string `json:"providerRef"`
	ErrorMessage string `json:"errorMessage"`
}

// RegisterPaymentHandlers wires the payment commands onto the server.
// provider-callback stands in for the real provider's webhook.
func RegisterPaymentHandlers(s *Server, svc *application.PaymentService) {
	s.Handle("create-session", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[createSessionRequest](payload)
		if err != nil {
			return nil, err
		}
		return svc.CreateSession(ctx, application.CreateSessionInput{
			BookingID:   req.BookingID,
			BuyerID:     req.BuyerID,
			AmountCents: req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
		})
	})

	s.Handle("provider-callback", func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := decode[providerCallbackRequest](payload)
		if err != nil {
			return nil, err
		}
		return nil, svc.HandleProviderCallback(ctx, application.ProviderCallback{
			SessionID:    req.SessionID,
			Succeeded:    req.Succeeded,
			ProviderRef:  req.ProviderRef,
			ErrorMessage: req.ErrorMessage,
		})
	})
}
