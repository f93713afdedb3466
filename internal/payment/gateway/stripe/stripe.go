package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Adapter verifies and parses Stripe webhook deliveries into canonical
// gateway events.
type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) (*Adapter, error) {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	return &Adapter{webhookSecret: secret}, nil
}

func (a *Adapter) Provider() string { return "stripe" }

// Verify checks the Stripe-Signature header against the raw payload. The
// signed content is "<timestamp>.<payload>" and any matching v1 signature
// passes.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

// Parse converts a verified payload into a GatewayEvent. Event types outside
// the handled set return ErrEventIgnored.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.GatewayEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "payment_intent.succeeded":
		return a.parsePaymentIntent(event, payload, domain.EventTypeIntentSucceeded)
	case "payment_intent.payment_failed":
		return a.parsePaymentIntent(event, payload, domain.EventTypeIntentFailed)
	default:
		return nil, domain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string         `json:"id"`
	PaymentIntent string         `json:"payment_intent"`
	AmountTotal   int64          `json:"amount_total"`
	Currency      string         `json:"currency"`
	Created       int64          `json:"created"`
	Metadata      map[string]any `json:"metadata"`
}

type stripePaymentIntent struct {
	ID                 string           `json:"id"`
	Amount             int64            `json:"amount"`
	AmountReceived     int64            `json:"amount_received"`
	Currency           string           `json:"currency"`
	Created            int64            `json:"created"`
	PaymentMethodTypes []string         `json:"payment_method_types"`
	LastPaymentError   *stripeLastError `json:"last_payment_error"`
	Metadata           map[string]any   `json:"metadata"`
}

type stripeLastError struct {
	Message string `json:"message"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*domain.GatewayEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	tenantID, invoiceID, err := parseMetadataIDs(session.Metadata)
	if err != nil {
		return nil, err
	}

	return &domain.GatewayEvent{
		Provider:          "stripe",
		ProviderEventID:   event.ID,
		Type:              domain.EventTypeCheckoutCompleted,
		TenantID:          tenantID,
		InvoiceID:         invoiceID,
		CheckoutSessionID: session.ID,
		PaymentIntentID:   strings.TrimSpace(session.PaymentIntent),
		Amount:            amountFromCents(session.AmountTotal),
		Currency:          strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:        timestamp(session.Created, event.Created),
		RawPayload:        payload,
	}, nil
}

func (a *Adapter) parsePaymentIntent(event stripeEvent, payload []byte, eventType string) (*domain.GatewayEvent, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	tenantID, invoiceID, err := parseMetadataIDs(intent.Metadata)
	if err != nil {
		return nil, err
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}

	methodType := ""
	if len(intent.PaymentMethodTypes) > 0 {
		methodType = intent.PaymentMethodTypes[0]
	}

	failure := ""
	if intent.LastPaymentError != nil {
		failure = strings.TrimSpace(intent.LastPaymentError.Message)
	}

	return &domain.GatewayEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            eventType,
		TenantID:        tenantID,
		InvoiceID:       invoiceID,
		PaymentIntentID: intent.ID,
		Amount:          amountFromCents(amount),
		Currency:        strings.ToUpper(strings.TrimSpace(intent.Currency)),
		MethodType:      methodType,
		FailureMessage:  failure,
		OccurredAt:      timestamp(intent.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func amountFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Round(2)
}

func timestamp(primary, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func parseMetadataIDs(metadata map[string]any) (snowflake.ID, *snowflake.ID, error) {
	tenantRaw := readMetadataValue(metadata, "tenant_id")
	if tenantRaw == "" {
		return 0, nil, domain.ErrInvalidTenant
	}
	tenantID, err := snowflake.ParseString(tenantRaw)
	if err != nil {
		return 0, nil, domain.ErrInvalidTenant
	}

	invoiceRaw := readMetadataValue(metadata, "invoice_id")
	if invoiceRaw == "" {
		return tenantID, nil, nil
	}
	invoiceID, err := snowflake.ParseString(invoiceRaw)
	if err != nil {
		return tenantID, nil, nil
	}
	return tenantID, &invoiceID, nil
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}
