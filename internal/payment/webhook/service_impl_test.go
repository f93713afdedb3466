package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "whsec_test"

type paymentServiceStub struct {
	events     []*domain.GatewayEvent
	processErr error
}

func (s *paymentServiceStub) Record(ctx context.Context, cmd domain.RecordPaymentCommand) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Get(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) ListByInvoice(ctx context.Context, tenantID, invoiceID snowflake.ID) ([]domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) ListByTenant(ctx context.Context, tenantID snowflake.ID) ([]domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Update(ctx context.Context, cmd domain.UpdatePaymentCommand) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	return nil
}

func (s *paymentServiceStub) RegisterCheckoutSession(ctx context.Context, cmd domain.RegisterCheckoutSessionCommand) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) StartReview(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Approve(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Reject(ctx context.Context, tenantID, id snowflake.ID, reason string) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) Resubmit(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	return nil, nil
}

func (s *paymentServiceStub) ProcessGatewayEvent(ctx context.Context, event *domain.GatewayEvent) error {
	s.events = append(s.events, event)
	return s.processErr
}

func newWebhookService(t *testing.T, secret string, stub *paymentServiceStub) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Log:        zap.NewNop(),
		PaymentSvc: stub,
		Cfg:        config.Config{GatewayWebhookSecret: secret},
	})
	require.NoError(t, err)
	return svc
}

func sign(secret string, payload []byte) http.Header {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)

	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func intentSucceededPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"amount": 12000,
			"currency": "usd",
			"payment_method_types": ["card"],
			"metadata": {"tenant_id": "1234567890123456789"}
		}}
	}`, eventID))
}

func TestIngest_ProcessesVerifiedEvent(t *testing.T) {
	stub := &paymentServiceStub{}
	svc := newWebhookService(t, testSecret, stub)

	payload := intentSucceededPayload("evt_1")
	err := svc.Ingest(context.Background(), payload, sign(testSecret, payload))
	require.NoError(t, err)
	require.Len(t, stub.events, 1)
	assert.Equal(t, "evt_1", stub.events[0].ProviderEventID)
	assert.Equal(t, domain.EventTypeIntentSucceeded, stub.events[0].Type)
}

func TestIngest_RejectsBadSignature(t *testing.T) {
	stub := &paymentServiceStub{}
	svc := newWebhookService(t, testSecret, stub)

	payload := intentSucceededPayload("evt_1")
	err := svc.Ingest(context.Background(), payload, sign("whsec_other", payload))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Empty(t, stub.events)
}

func TestIngest_NoSecretConfigured(t *testing.T) {
	stub := &paymentServiceStub{}
	svc := newWebhookService(t, "", stub)

	payload := intentSucceededPayload("evt_1")
	err := svc.Ingest(context.Background(), payload, sign(testSecret, payload))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestIngest_AcksUnhandledEventTypes(t *testing.T) {
	stub := &paymentServiceStub{}
	svc := newWebhookService(t, testSecret, stub)

	payload := []byte(`{"id":"evt_2","type":"customer.created","data":{"object":{}}}`)
	err := svc.Ingest(context.Background(), payload, sign(testSecret, payload))
	assert.NoError(t, err)
	assert.Empty(t, stub.events)
}

func TestIngest_AcksDuplicateDelivery(t *testing.T) {
	stub := &paymentServiceStub{processErr: domain.ErrEventAlreadyProcessed}
	svc := newWebhookService(t, testSecret, stub)

	payload := intentSucceededPayload("evt_3")
	err := svc.Ingest(context.Background(), payload, sign(testSecret, payload))
	assert.NoError(t, err)
	assert.Len(t, stub.events, 1)
}

func TestIngest_AcksProcessingErrors(t *testing.T) {
	stub := &paymentServiceStub{processErr: domain.ErrInvalidEvent}
	svc := newWebhookService(t, testSecret, stub)

	payload := intentSucceededPayload("evt_4")
	err := svc.Ingest(context.Background(), payload, sign(testSecret, payload))
	assert.NoError(t, err)
}
