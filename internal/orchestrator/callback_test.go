package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/kafka"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func (f *fixture) newPayment(t *testing.T) *payments.Payment {
	t.Helper()
	p, err := f.svc.InitiatePayment(context.Background(), PaymentInput{Amount: 5000, Client: "client-abc"}, guest)
	require.NoError(t, err)
	return p
}

func TestHandleCallback_UnknownReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleCallback(context.Background(), "PAY-X", OutcomeSuccess, "TXN-1")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestHandleCallback_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := f.newPayment(t)

	first, err := f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, payments.StatusCompleted, first.Status)
	require.Equal(t, "TXN-1", first.TransactionID)

	second, err := f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, payments.StatusCompleted, second.Status)

	require.Equal(t, []string{payments.EventPaymentInitiated, payments.EventPaymentCompleted}, f.events.types())
}

func TestHandleCallback_ConflictingOutcomeIsRefused(t *testing.T) {
	f := newFixture(t)
	p := f.newPayment(t)

	_, err := f.svc.HandleCallback(context.Background(), p.Reference, OutcomeFailure, "")
	require.NoError(t, err)

	_, err = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-9")
	require.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	got, err := f.ledger.FindByReference(context.Background(), p.Reference)
	require.NoError(t, err)
	require.Equal(t, payments.StatusFailed, got.Status)
	require.Empty(t, got.TransactionID)
}

func TestHandleCallback_ConcurrentDuplicatesAllSucceed(t *testing.T) {
	f := newFixture(t)
	p := f.newPayment(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-1")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	completed := 0
	for _, typ := range f.events.types() {
		if typ == payments.EventPaymentCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)
}

func TestHandleCallback_ConcurrentConflictingOutcomes(t *testing.T) {
	f := newFixture(t)
	p := f.newPayment(t)

	var wg sync.WaitGroup
	var okErr, koErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, okErr = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "")
	}()
	go func() {
		defer wg.Done()
		_, koErr = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeFailure, "")
	}()
	wg.Wait()

	got, err := f.ledger.FindByReference(context.Background(), p.Reference)
	require.NoError(t, err)
	if got.Status == payments.StatusCompleted {
		require.NoError(t, okErr)
		require.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(koErr))
	} else {
		require.Equal(t, payments.StatusFailed, got.Status)
		require.NoError(t, koErr)
		require.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(okErr))
	}
}

func TestHandleCallback_ConfirmsReservation(t *testing.T) {
	f := newFixture(t)
	r := f.pendingReservation(t)
	p, err := f.svc.InitiateForReservation(context.Background(), ReservationPaymentInput{ReservationID: r.ID}, guest)
	require.NoError(t, err)

	_, err = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-1")
	require.NoError(t, err)

	got, err := f.res.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusConfirmed, got.Status)
	require.Equal(t, p.ID, got.PaymentID)
	require.Contains(t, f.events.types(), payments.EventReservationConfirmed)
}

func TestHandleCallback_FailureLeavesReservation(t *testing.T) {
	f := newFixture(t)
	r := f.pendingReservation(t)
	p, err := f.svc.InitiateForReservation(context.Background(), ReservationPaymentInput{ReservationID: r.ID}, guest)
	require.NoError(t, err)

	_, err = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeFailure, "")
	require.NoError(t, err)

	got, err := f.res.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusPending, got.Status)

	// a fresh attempt is allowed once the previous one failed
	_, err = f.svc.InitiateForReservation(context.Background(), ReservationPaymentInput{ReservationID: r.ID}, guest)
	require.NoError(t, err)
}

func TestHandleCallback_ReservationSyncFailureKeepsPayment(t *testing.T) {
	f := newFixture(t)
	r := f.pendingReservation(t)
	p, err := f.svc.InitiateForReservation(context.Background(), ReservationPaymentInput{ReservationID: r.ID}, guest)
	require.NoError(t, err)
	f.res.ConfirmErr = apperr.New(apperr.KindConflict, "db down")

	got, err := f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "TXN-1")
	require.NoError(t, err)
	require.Equal(t, payments.StatusCompleted, got.Status)

	f.res.ConfirmErr = nil
	require.NoError(t, f.svc.SyncReservation(context.Background(), p.Reference))
	res, _ := f.res.FindByID(context.Background(), r.ID)
	require.Equal(t, reservations.StatusConfirmed, res.Status)
}

func TestHandleEvent_SyncsReservation(t *testing.T) {
	f := newFixture(t)
	r := f.pendingReservation(t)
	p, err := f.svc.InitiateForReservation(context.Background(), ReservationPaymentInput{ReservationID: r.ID}, guest)
	require.NoError(t, err)
	f.res.ConfirmErr = apperr.New(apperr.KindConflict, "db down")
	_, err = f.svc.HandleCallback(context.Background(), p.Reference, OutcomeSuccess, "")
	require.NoError(t, err)
	f.res.ConfirmErr = nil

	done, _ := f.ledger.FindByReference(context.Background(), p.Reference)
	env := payments.Envelope{
		EventID:   "ev-1",
		EventType: payments.EventPaymentCompleted,
		Payload:   kafka.MustMarshal(payments.NewStatusPayload(done)),
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), kafkago.Message{Value: kafka.MustMarshal(env)}))

	res, _ := f.res.FindByID(context.Background(), r.ID)
	require.Equal(t, reservations.StatusConfirmed, res.Status)

	// garbage and unrelated events are committed without work
	require.NoError(t, f.svc.HandleEvent(context.Background(), kafkago.Message{Value: []byte("{")}))
	other := payments.Envelope{EventID: "ev-2", EventType: payments.EventPaymentFailed}
	require.NoError(t, f.svc.HandleEvent(context.Background(), kafkago.Message{Value: kafka.MustMarshal(other)}))
}

func TestOutcomeFromStatus(t *testing.T) {
	o, err := OutcomeFromStatus("COMPLETED")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, o)

	o, err = OutcomeFromStatus("failure")
	require.NoError(t, err)
	require.Equal(t, OutcomeFailure, o)

	_, err = OutcomeFromStatus("REFUNDED")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
