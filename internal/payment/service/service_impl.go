package service

import (
	"context"
	"strings"
	"time"

	invoicedomain "github.com/Intuitive-Solution/neibrPay-sub000/internal/invoice/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	InvoiceSvc  invoicedomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	invoiceSvc  invoicedomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		invoiceSvc:  p.InvoiceSvc,
	}
}

func (s *Service) Record(ctx context.Context, cmd domain.RecordPaymentCommand) (*domain.Payment, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidMethod(cmd.Method) {
		return nil, domain.ErrInvalidMethod
	}
	reviewStatus := cmd.ReviewStatus
	if reviewStatus == "" {
		reviewStatus = domain.ReviewApproved
	}

	now := time.Now().UTC()
	receivedAt := cmd.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}

	payment := &domain.Payment{
		ID:           s.genID.Generate(),
		TenantID:     cmd.TenantID,
		InvoiceID:    cmd.InvoiceID,
		Amount:       cmd.Amount.Round(2),
		Method:       cmd.Method,
		ReviewStatus: reviewStatus,
		Reference:    strings.TrimSpace(cmd.Reference),
		Notes:        cmd.Notes,
		ReceivedAt:   receivedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, cmd.TenantID, cmd.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == invoicedomain.InvoiceStatusCancelled || invoice.Tombstoned {
			return domain.ErrNotPayable
		}
		if reviewStatus == domain.ReviewApproved && payment.Amount.GreaterThan(invoice.Balance()) {
			return domain.ErrOverpayment
		}
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}
		_, err = s.invoiceSvc.RecomputeFromPayments(ctx, tx, cmd.TenantID, cmd.InvoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.String("method", string(payment.Method)),
		zap.String("review_status", string(payment.ReviewStatus)),
	)
	return payment, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return s.repo.Find(ctx, s.db, tenantID, id)
}

func (s *Service) ListByInvoice(ctx context.Context, tenantID, invoiceID snowflake.ID) ([]domain.Payment, error) {
	return s.repo.ListByInvoice(ctx, s.db, tenantID, invoiceID)
}

func (s *Service) ListByTenant(ctx context.Context, tenantID snowflake.ID) ([]domain.Payment, error) {
	return s.repo.ListByTenant(ctx, s.db, tenantID)
}

func (s *Service) Update(ctx context.Context, cmd domain.UpdatePaymentCommand) (*domain.Payment, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidMethod(cmd.Method) {
		return nil, domain.ErrInvalidMethod
	}

	var updated *domain.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.Find(ctx, tx, cmd.TenantID, cmd.PaymentID)
		if err != nil {
			return err
		}
		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, cmd.TenantID, payment.InvoiceID)
		if err != nil {
			return err
		}

		if payment.ReviewStatus == domain.ReviewApproved {
			// The balance excluding this payment is what the new amount
			// must fit into.
			available := invoice.Balance().Add(payment.Amount)
			if cmd.Amount.Round(2).GreaterThan(available) {
				return domain.ErrOverpayment
			}
		}

		payment.Amount = cmd.Amount.Round(2)
		payment.Method = cmd.Method
		payment.Reference = strings.TrimSpace(cmd.Reference)
		payment.Notes = cmd.Notes
		payment.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}

		if _, err := s.invoiceSvc.RecomputeFromPayments(ctx, tx, cmd.TenantID, payment.InvoiceID); err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RegisterCheckoutSession creates the pending payment a hosted checkout will
// settle, so succeeded/failed intent events have a row to land on. The link
// is the session id; re-registering a session returns the existing payment.
func (s *Service) RegisterCheckoutSession(ctx context.Context, cmd domain.RegisterCheckoutSessionCommand) (*domain.Payment, error) {
	sessionID := strings.TrimSpace(cmd.CheckoutSessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	if cmd.Amount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	var registered *domain.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySession(ctx, tx, cmd.TenantID, sessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			registered = existing
			return nil
		}

		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, cmd.TenantID, cmd.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == invoicedomain.InvoiceStatusCancelled || invoice.Tombstoned {
			return domain.ErrNotPayable
		}

		amount := cmd.Amount.Round(2)
		if amount.IsZero() {
			amount = invoice.Balance()
		}
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		if amount.GreaterThan(invoice.Balance()) {
			return domain.ErrOverpayment
		}

		now := time.Now().UTC()
		payment := &domain.Payment{
			ID:                s.genID.Generate(),
			TenantID:          cmd.TenantID,
			InvoiceID:         cmd.InvoiceID,
			Amount:            amount,
			Method:            domain.MethodStripeCard,
			ReviewStatus:      domain.ReviewPending,
			CheckoutSessionID: &sessionID,
			ReceivedAt:        now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}
		if _, err := s.invoiceSvc.RecomputeFromPayments(ctx, tx, cmd.TenantID, cmd.InvoiceID); err != nil {
			return err
		}
		registered = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registered, nil
}

// Delete removes a payment and recomputes the invoice, which is how a paid
// invoice reverts to partial or sent.
func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.Find(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if _, err := s.invoiceRepo.FindForUpdate(ctx, tx, tenantID, payment.InvoiceID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, tenantID, id); err != nil {
			return err
		}
		_, err = s.invoiceSvc.RecomputeFromPayments(ctx, tx, tenantID, payment.InvoiceID)
		return err
	})
}

func (s *Service) StartReview(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return s.transition(ctx, tenantID, id, domain.ReviewInReview, "",
		domain.ReviewPending)
}

func (s *Service) Approve(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return s.transition(ctx, tenantID, id, domain.ReviewApproved, "",
		domain.ReviewPending, domain.ReviewInReview)
}

func (s *Service) Reject(ctx context.Context, tenantID, id snowflake.ID, reason string) (*domain.Payment, error) {
	return s.transition(ctx, tenantID, id, domain.ReviewRejected, strings.TrimSpace(reason),
		domain.ReviewPending, domain.ReviewInReview)
}

func (s *Service) Resubmit(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return s.transition(ctx, tenantID, id, domain.ReviewPending, "",
		domain.ReviewRejected)
}

func (s *Service) transition(ctx context.Context, tenantID, id snowflake.ID, to domain.ReviewStatus, reason string, from ...domain.ReviewStatus) (*domain.Payment, error) {
	var updated *domain.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.Find(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if !statusIn(payment.ReviewStatus, from) {
			return domain.ErrInvalidReviewTransition
		}

		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, tenantID, payment.InvoiceID)
		if err != nil {
			return err
		}
		if to == domain.ReviewApproved && payment.Amount.GreaterThan(invoice.Balance()) {
			return domain.ErrOverpayment
		}

		payment.ReviewStatus = to
		payment.RejectedReason = reason
		payment.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}

		if _, err := s.invoiceSvc.RecomputeFromPayments(ctx, tx, tenantID, payment.InvoiceID); err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func statusIn(status domain.ReviewStatus, allowed []domain.ReviewStatus) bool {
	for _, s := range allowed {
		if status == s {
			return true
		}
	}
	return false
}

// ProcessGatewayEvent records the event for idempotency, applies its effect
// and marks it processed, all in one transaction. A redelivered event whose
// first delivery already finished returns ErrEventAlreadyProcessed.
func (s *Service) ProcessGatewayEvent(ctx context.Context, event *domain.GatewayEvent) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	if strings.TrimSpace(event.ProviderEventID) == "" || strings.TrimSpace(event.Type) == "" {
		return domain.ErrInvalidEvent
	}
	if event.TenantID == 0 {
		return domain.ErrInvalidTenant
	}

	now := time.Now().UTC()
	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		TenantID:        event.TenantID,
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEvent(ctx, tx, record)
		if err != nil {
			return err
		}
		if !inserted {
			stored, err := s.repo.FindEvent(ctx, tx, event.Provider, event.ProviderEventID)
			if err != nil {
				return err
			}
			if stored == nil {
				return domain.ErrInvalidEvent
			}
			if stored.ProcessedAt != nil {
				return domain.ErrEventAlreadyProcessed
			}
			record = stored
		}

		switch event.Type {
		case domain.EventTypeCheckoutCompleted:
			err = s.applyCheckoutCompleted(ctx, tx, event)
		case domain.EventTypeIntentSucceeded:
			err = s.applyIntentSucceeded(ctx, tx, event)
		case domain.EventTypeIntentFailed:
			err = s.applyIntentFailed(ctx, tx, event)
		default:
			err = domain.ErrEventIgnored
		}
		if err != nil {
			return err
		}

		return s.repo.MarkEventProcessed(ctx, tx, record.ID, now)
	})
}

// applyCheckoutCompleted only links the payment intent to a payment already
// created for the checkout session. Completion of checkout is not proof of
// settled funds; the paid total moves on payment_intent.succeeded.
func (s *Service) applyCheckoutCompleted(ctx context.Context, tx *gorm.DB, event *domain.GatewayEvent) error {
	payment, err := s.repo.FindBySession(ctx, tx, event.TenantID, event.CheckoutSessionID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.log.Info("checkout session has no local payment",
			zap.String("session_id", event.CheckoutSessionID),
		)
		return nil
	}
	if event.PaymentIntentID == "" || payment.PaymentIntentID != nil {
		return nil
	}
	intentID := event.PaymentIntentID
	payment.PaymentIntentID = &intentID
	payment.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, tx, payment)
}

func (s *Service) applyIntentSucceeded(ctx context.Context, tx *gorm.DB, event *domain.GatewayEvent) error {
	payment, err := s.repo.FindByIntent(ctx, tx, event.TenantID, event.PaymentIntentID)
	if err != nil {
		return err
	}
	if payment == nil && event.CheckoutSessionID != "" {
		payment, err = s.repo.FindBySession(ctx, tx, event.TenantID, event.CheckoutSessionID)
		if err != nil {
			return err
		}
	}

	if payment == nil {
		// Only payments registered through a checkout session settle here.
		// An event with no local row may be a duplicate delivered after
		// cleanup, or belong to another system; acknowledge without touching
		// the ledger.
		s.log.Info("payment intent success has no local payment",
			zap.String("payment_intent_id", event.PaymentIntentID),
			zap.String("session_id", event.CheckoutSessionID),
		)
		return nil
	}
	if payment.ReviewStatus == domain.ReviewApproved &&
		(payment.Method == domain.MethodStripeCard || payment.Method == domain.MethodStripeACH) {
		// Same intent already settled through an earlier delivery.
		return nil
	}

	invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, event.TenantID, payment.InvoiceID)
	if err != nil {
		return err
	}
	if event.Amount.IsPositive() {
		payment.Amount = event.Amount
	}
	if payment.Amount.GreaterThan(invoice.Balance()) {
		// The gateway collected more than is owed. The funds are real, so
		// the payment still settles; flag the discrepancy for review.
		s.log.Warn("gateway settlement exceeds invoice balance",
			zap.String("payment_id", payment.ID.String()),
			zap.String("invoice_id", payment.InvoiceID.String()),
			zap.String("amount", payment.Amount.String()),
			zap.String("balance", invoice.Balance().String()),
		)
		payment.Notes = strings.TrimSpace(payment.Notes + "\ngateway settled above invoice balance")
	}
	payment.Method = domain.MethodFromGateway(event.MethodType)
	payment.ReviewStatus = domain.ReviewApproved
	payment.GatewayFailure = ""
	if payment.PaymentIntentID == nil && event.PaymentIntentID != "" {
		intentID := event.PaymentIntentID
		payment.PaymentIntentID = &intentID
	}
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, tx, payment); err != nil {
		return err
	}

	_, err = s.invoiceSvc.RecomputeFromPayments(ctx, tx, event.TenantID, payment.InvoiceID)
	return err
}

// applyIntentFailed annotates the payment with the gateway failure and never
// touches the invoice totals.
func (s *Service) applyIntentFailed(ctx context.Context, tx *gorm.DB, event *domain.GatewayEvent) error {
	payment, err := s.repo.FindByIntent(ctx, tx, event.TenantID, event.PaymentIntentID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.log.Info("payment intent failure has no local payment",
			zap.String("payment_intent_id", event.PaymentIntentID),
		)
		return nil
	}
	if payment.ReviewStatus == domain.ReviewApproved {
		// A settled payment is not unwound by a late failure event.
		return nil
	}
	payment.GatewayFailure = event.FailureMessage
	payment.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, tx, payment)
}
