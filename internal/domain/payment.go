package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is the payment service's own record of one checkout session.
type Payment struct {
	ID           uuid.UUID
	BookingID    uuid.UUID
	BuyerID      uuid.UUID
	AmountCents  int64
	Currency     string
	Status       PaymentStatus
	SessionID    string
	CheckoutURL  string
	Description  string
	ProviderRef  string
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

func NewPayment(bookingID, buyerID uuid.UUID, amountCents int64, currency, description, checkoutURL string) *Payment {
	return &Payment{
		ID:          uuid.New(),
		BookingID:   bookingID,
		BuyerID:     buyerID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      PaymentPending,
		SessionID:   uuid.NewString(),
		CheckoutURL: checkoutURL,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

func (p *Payment) Complete(providerRef string, now time.Time) error {
	if p.Status != PaymentPending {
		return InvalidStatef("payment %s is %s, cannot complete", p.ID, p.Status)
	}
	t := now.UTC()
	p.Status = PaymentCompleted
	p.ProviderRef = providerRef
	p.CompletedAt = &t
	return nil
}

func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentPending {
		return InvalidStatef("payment %s is %s, cannot fail", p.ID, p.Status)
	}
	p.Status = PaymentFailed
	p.ErrorMessage = reason
	return nil
}
