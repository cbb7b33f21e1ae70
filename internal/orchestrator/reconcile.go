package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	kafkax "github.com/ariefcatur/go-placement-payments/internal/kafka"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
)

// RepairOrphans links payments whose reservation never recorded them, the
// state left when a crash hits between the payment insert and the
// reservation update. COMPLETED payments also confirm their reservation,
// including linked ones whose confirmation was lost.
// It returns how many reservations were repaired.
func (s *Service) RepairOrphans(ctx context.Context, limit int) (int, error) {
	orphans, err := s.Payments.ListOrphans(ctx, limit)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for i := range orphans {
		p := &orphans[i]
		resID := p.ReservationRef()

		if p.Status == payments.StatusCompleted {
			err := s.confirmReservation(ctx, p)
			if err == nil {
				repaired++
				continue
			}
			s.log().Warn("orphan confirm failed, linking only", "reference", p.Reference, "reservation_id", resID, "err", err)
		}

		linked, err := s.Reservations.LinkPayment(ctx, resID, p.ID)
		if err != nil {
			return repaired, fmt.Errorf("link %s: %w", p.Reference, err)
		}
		if linked {
			repaired++
			s.log().Info("orphan payment linked", "reference", p.Reference, "reservation_id", resID)
		}
	}
	return repaired, nil
}

// SyncReservation re-applies the reservation side of a COMPLETED payment.
// Other statuses need nothing.
func (s *Service) SyncReservation(ctx context.Context, reference string) error {
	p, err := s.Payments.FindByReference(ctx, reference)
	if err != nil {
		return err
	}
	if p.Status != payments.StatusCompleted {
		return nil
	}
	return s.confirmReservation(ctx, p)
}

// HandleEvent is the reconciler's consumer handler. Returning nil commits
// the offset, so only retryable failures are returned.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env payments.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Warn("skipping undecodable event", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != payments.EventPaymentCompleted {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
	first, err := s.Cache.MarkOnce(ctx, dkey, redisx.TTLDedup)
	if err == nil && !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[payments.StatusPayload](env.Payload)
	if err != nil {
		s.log().Warn("skipping event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}
	err = s.SyncReservation(ctx, p.Reference)
	switch {
	case err == nil:
		return nil
	case apperr.IsKind(err, apperr.KindNotFound), apperr.IsKind(err, apperr.KindInvalidTransition),
		apperr.IsKind(err, apperr.KindConflict):
		// nothing a retry can fix
		s.log().Warn("reservation sync skipped", "reference", p.Reference, "err", err)
		return nil
	}
	// release the claim so the redelivery is processed
	_ = s.Cache.Invalidate(ctx, dkey)
	return err
}
