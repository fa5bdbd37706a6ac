package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

// Logical service names as registered in the service registry.
const (
	ServiceInventory = "inventory"
	ServiceBooking   = "booking"
	ServicePayment   = "payment"
)

// Request and response shapes for the inter-service commands. Both the
// gateways below and the server-side handlers speak these, so the wire
// contract lives in one place.
type seatSelectionRequest struct {
	SeatIDs []uuid.UUID `json:"seatIds"`
}

type reserveRequest struct {
	SeatIDs   []uuid.UUID `json:"seatIds"`
	BuyerID   uuid.UUID   `json:"buyerId"`
	BookingID uuid.UUID   `json:"bookingId"`
	Deadline  time.Time   `json:"deadline"`
}

type confirmSeatsRequest struct {
	SeatIDs   []uuid.UUID `json:"seatIds"`
	BuyerID   uuid.UUID   `json:"buyerId"`
	BookingID uuid.UUID   `json:"bookingId"`
}

type releaseSeatsRequest struct {
	SeatIDs   []uuid.UUID `json:"seatIds"`
	BookingID uuid.UUID   `json:"bookingId"`
}

type availabilityResponse struct {
	PricedSeats []domain.PricedSeat `json:"pricedSeats"`
	Total       int64               `json:"total"`
}

type createSessionRequest struct {
	BookingID   uuid.UUID `json:"bookingId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
}

// InventoryClient implements domain.InventoryGateway over the rpc client.
type InventoryClient struct {
	client *Client
}

func NewInventoryClient(client *Client) *InventoryClient {
	return &InventoryClient{client: client}
}

func (g *InventoryClient) CheckAvailability(ctx context.Context, seatIDs []uuid.UUID) ([]domain.PricedSeat, int64, error) {
	var resp availabilityResponse
	err := g.client.Call(ctx, ServiceInventory, "check-availability", seatSelectionRequest{SeatIDs: seatIDs}, &resp)
	if err != nil {
		return nil, 0, err
	}
	return resp.PricedSeats, resp.Total, nil
}

func (g *InventoryClient) Reserve(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID, deadline time.Time) ([]domain.PricedSeat, int64, error) {
	var resp availabilityResponse
	err := g.client.Call(ctx, ServiceInventory, "reserve", reserveRequest{
		SeatIDs:   seatIDs,
		BuyerID:   buyerID,
		BookingID: bookingID,
		Deadline:  deadline,
	}, &resp)
	if err != nil {
		return nil, 0, err
	}
	return resp.PricedSeats, resp.Total, nil
}

func (g *InventoryClient) Confirm(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID) error {
	return g.client.Call(ctx, ServiceInventory, "confirm", confirmSeatsRequest{
		SeatIDs:   seatIDs,
		BuyerID:   buyerID,
		BookingID: bookingID,
	}, nil)
}

func (g *InventoryClient) Release(ctx context.Context, seatIDs []uuid.UUID, bookingID uuid.UUID) error {
	return g.client.Call(ctx, ServiceInventory, "release", releaseSeatsRequest{
		SeatIDs:   seatIDs,
		BookingID: bookingID,
	}, nil)
}

// PaymentClient implements domain.PaymentGateway over the rpc client.
type PaymentClient struct {
	client *Client
}

func NewPaymentClient(client *Client) *PaymentClient {
	return &PaymentClient{client: client}
}

func (g *PaymentClient) CreateSession(ctx context.Context, bookingID, buyerID uuid.UUID, amountCents int64, currency, description string) (*domain.PaymentSession, error) {
	var session domain.PaymentSession
	err := g.client.Call(ctx, ServicePayment, "create-session", createSessionRequest{
		BookingID:   bookingID,
		BuyerID:     buyerID,
		Amount:      amountCents,
		Currency:    currency,
		Description: description,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
