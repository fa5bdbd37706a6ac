package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

// PaymentService owns payment records and the outbox rows announcing their
// outcomes. The provider round-trip is out of scope; the session contract
// is the single amount/currency/session triple the saga needs.
type PaymentService struct {
	store           domain.PaymentStore
	checkoutBaseURL string
	outboxRetries   int
	log             *zap.Logger
	now             func() time.Time
}

func NewPaymentService(store domain.PaymentStore, checkoutBaseURL string, outboxRetries int, log *zap.Logger) *PaymentService {
	return &PaymentService{
		store:           store,
		checkoutBaseURL: strings.TrimRight(checkoutBaseURL, "/"),
		outboxRetries:   outboxRetries,
		log:             log,
		now:             time.Now,
	}
}

type CreateSessionInput struct {
	BookingID   uuid.UUID
	BuyerID     uuid.UUID
	AmountCents int64
	Currency    string
	Description string
}

// SessionWindowSec is how long a checkout session stays redeemable; it
// mirrors the booking reservation window.
const SessionWindowSec = 900

func (s *PaymentService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.PaymentSession, error) {
	if in.BookingID == uuid.Nil || in.BuyerID == uuid.Nil {
		return nil, domain.Validationf("bookingId and buyerId are required")
	}
	if in.AmountCents <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	if len(in.Currency) != 3 {
		return nil, domain.Validationf("currency must be a 3-letter code")
	}

	payment := domain.NewPayment(in.BookingID, in.BuyerID, in.AmountCents, strings.ToUpper(in.Currency), in.Description, "")
	payment.CheckoutURL = s.checkoutBaseURL + "/" + payment.SessionID

	if err := s.store.Insert(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info("payment session created",
		zap.String("booking_id", in.BookingID.String()),
		zap.String("session_id", payment.SessionID),
		zap.Int64("amount_cents", in.AmountCents))

	return &domain.PaymentSession{
		SessionID:   payment.SessionID,
		CheckoutURL: payment.CheckoutURL,
		ExpiresIn:   SessionWindowSec,
	}, nil
}

type ProviderCallback struct {
	SessionID    string
	Succeeded    bool
	ProviderRef  string
	ErrorMessage string
}

// HandleProviderCallback records the provider's verdict and, in the same
// local transaction, the outbox row that makes it visible to the rest of
// the system. Redelivered callbacks for an already-settled payment are
// acknowledged without writing anything.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, cb ProviderCallback) error {
	if cb.SessionID == "" {
		return domain.Validationf("sessionId is required")
	}

	payment, err := s.store.GetBySessionID(ctx, cb.SessionID)
	if err != nil {
		return err
	}
	if payment.Status != domain.PaymentPending {
		s.log.Warn("provider callback for already-settled payment",
			zap.String("session_id", cb.SessionID),
			zap.String("status", string(payment.Status)))
		return nil
	}

	now := s.now()
	var ev *domain.OutboxEvent
	if cb.Succeeded {
		if cb.ProviderRef == "" {
			return domain.Validationf("providerRef is required for a completed payment")
		}
		if err := payment.Complete(cb.ProviderRef, now); err != nil {
			return err
		}
		ev, err = domain.NewOutboxEvent("payment", payment.ID, domain.TopicPaymentCompleted, domain.PaymentCompletedPayload{
			PaymentID:   payment.ID,
			BookingID:   payment.BookingID,
			BuyerID:     payment.BuyerID,
			AmountCents: payment.AmountCents,
			Currency:    payment.Currency,
			ProviderRef: cb.ProviderRef,
			CompletedAt: now.UTC(),
		}, s.outboxRetries)
	} else {
		reason := cb.ErrorMessage
		if reason == "" {
			reason = "payment declined"
		}
		if err := payment.Fail(reason); err != nil {
			return err
		}
		ev, err = domain.NewOutboxEvent("payment", payment.ID, domain.TopicPaymentFailed, domain.PaymentFailedPayload{
			PaymentID:    payment.ID,
			BookingID:    payment.BookingID,
			BuyerID:      payment.BuyerID,
			ErrorMessage: reason,
			FailedAt:     now.UTC(),
		}, s.outboxRetries)
	}
	if err != nil {
		return err
	}

	if err := s.store.UpdateWithOutbox(ctx, payment, ev); err != nil {
		return err
	}

	s.log.Info("payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", payment.BookingID.String()),
		zap.String("status", string(payment.Status)))
	return nil
}
