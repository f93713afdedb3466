package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Intuitive-Solution/neibrPay-sub000/internal/config"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/domain"
	"github.com/Intuitive-Solution/neibrPay-sub000/internal/payment/gateway/stripe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Gateway verifies and parses provider webhook deliveries.
type Gateway interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*domain.GatewayEvent, error)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc domain.Service
	Cfg        config.Config
}

type Service struct {
	log        *zap.Logger
	paymentSvc domain.Service
	gateway    Gateway
}

var (
	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Webhook events received, by provider and outcome.",
	}, []string{"provider", "outcome"})
)

func NewService(p Params) (*Service, error) {
	var gateway Gateway
	if secret := strings.TrimSpace(p.Cfg.GatewayWebhookSecret); secret != "" {
		adapter, err := stripe.NewAdapter(secret)
		if err != nil {
			return nil, err
		}
		gateway = adapter
	}

	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		gateway:    gateway,
	}, nil
}

// Ingest handles one raw webhook delivery. Signature failures are the only
// rejection the caller should surface as 400; everything else is acked so
// the provider stops retrying.
func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) error {
	if s.gateway == nil {
		return domain.ErrInvalidSignature
	}
	provider := s.gateway.Provider()

	if err := s.gateway.Verify(ctx, payload, headers); err != nil {
		eventsReceived.WithLabelValues(provider, "bad_signature").Inc()
		return domain.ErrInvalidSignature
	}
	if !json.Valid(payload) {
		eventsReceived.WithLabelValues(provider, "bad_payload").Inc()
		return nil
	}

	event, err := s.gateway.Parse(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventIgnored):
			eventsReceived.WithLabelValues(provider, "ignored").Inc()
		default:
			eventsReceived.WithLabelValues(provider, "unparseable").Inc()
			s.log.Warn("webhook payload not parseable", zap.Error(err))
		}
		return nil
	}

	if err := s.paymentSvc.ProcessGatewayEvent(ctx, event); err != nil {
		if errors.Is(err, domain.ErrEventAlreadyProcessed) {
			eventsReceived.WithLabelValues(provider, "duplicate").Inc()
			return nil
		}
		eventsReceived.WithLabelValues(provider, "error").Inc()
		s.log.Error("gateway event processing failed",
			zap.String("event_id", event.ProviderEventID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return nil
	}

	eventsReceived.WithLabelValues(provider, "processed").Inc()
	return nil
}
