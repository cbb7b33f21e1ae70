// Package orchestrator drives the payment and reservation lifecycles: it
// creates payment intents, obtains checkout links, applies provider callbacks
// and keeps reservations in step with the payments that settle them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/identity"
	kafkax "github.com/ariefcatur/go-placement-payments/internal/kafka"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/provider"
	"github.com/ariefcatur/go-placement-payments/internal/redisx"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// LinkGenerator is the provider side of the service; *provider.Router implements it.
type LinkGenerator interface {
	Supports(m payments.Method) bool
	GenerateLink(ctx context.Context, req provider.LinkRequest) (string, error)
}

// Service is the only writer of payment and reservation status.
// Events, Cache and Log may be nil.
type Service struct {
	Payments     payments.Ledger
	Reservations reservations.Store
	Users        identity.Directory
	Providers    LinkGenerator
	Refs         *payments.ReferenceGenerator
	Events       kafkax.Publisher
	Cache        *redisx.Cache
	Log          *slog.Logger

	DefaultMethod            payments.Method
	DefaultReservationAmount int64
	ServiceName              string
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Service) refs() *payments.ReferenceGenerator {
	if s.Refs != nil {
		return s.Refs
	}
	return payments.NewReferenceGenerator(time.UTC)
}

func (s *Service) defaultMethod() payments.Method {
	if s.DefaultMethod != "" {
		return s.DefaultMethod
	}
	return payments.MethodWave
}

func statusKey(reference string) string {
	return fmt.Sprintf(redisx.KeyPaymentStatus, reference)
}

func (s *Service) invalidate(ctx context.Context, reference string) {
	if err := s.Cache.Invalidate(ctx, statusKey(reference)); err != nil {
		s.log().Warn("status cache invalidate failed", "reference", reference, "err", err)
	}
}

// publishOnce emits an event at most once per dedupID while Redis remembers
// it. Without Redis, or when Redis fails, it publishes anyway.
func (s *Service) publishOnce(ctx context.Context, eventType, key, dedupID string, payload any) {
	if s.Events == nil {
		return
	}
	first, err := s.Cache.MarkOnce(ctx, fmt.Sprintf(redisx.KeyDedup, s.producer(), dedupID), redisx.TTLDedup)
	if err != nil {
		s.log().Warn("event dedup unavailable", "event", eventType, "key", key, "err", err)
	} else if !first {
		return
	}

	ev := payments.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producer(),
		CorrelationID: key,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Events.Publish(payments.PartitionKey(key), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}

func (s *Service) publishStatus(ctx context.Context, p *payments.Payment) {
	ev := payments.EventFor(p.Status)
	if ev == "" {
		return
	}
	s.publishOnce(ctx, ev, p.Reference, p.Reference+":"+string(p.Status), payments.NewStatusPayload(p))
}

func (s *Service) producer() string {
	if s.ServiceName != "" {
		return s.ServiceName
	}
	return "placement-api"
}
