package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
	"github.com/ariefcatur/go-placement-payments/internal/orchestrator"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/go-chi/chi/v5"
)

type PaymentsHandler struct {
	Svc *orchestrator.Service
	// FrontendURL receives the payer after a provider redirect.
	FrontendURL string
	Log         *slog.Logger
}

type createPaymentReq struct {
	Amount      int64          `json:"amount" validate:"required,gt=0"`
	Method      string         `json:"method" validate:"omitempty,oneof=OM WAVE CARD BANK_TRANSFER"`
	Currency    string         `json:"currency" validate:"omitempty,oneof=XOF USD EUR"`
	Type        string         `json:"type" validate:"omitempty,oneof=payment refund payment_link"`
	Reference   string         `json:"reference" validate:"omitempty,max=64"`
	Client      string         `json:"client" validate:"omitempty,max=255"`
	Phone       string         `json:"phone" validate:"omitempty,max=32"`
	Email       string         `json:"email" validate:"omitempty,email"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	RequireLink bool           `json:"requireLink"`
}

type processReservationReq struct {
	ReservationID string `json:"reservationId" validate:"required"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	PaymentMethod string `json:"paymentMethod"`
	PhoneNumber   string `json:"phoneNumber" validate:"omitempty,max=32"`
}

type callbackReq struct {
	Reference     string `json:"reference" validate:"required"`
	Status        string `json:"status" validate:"required"`
	TransactionID string `json:"transactionId"`
}

type updateStatusReq struct {
	Status        string `json:"status" validate:"required"`
	TransactionID string `json:"transactionId"`
}

type paymentResp struct {
	Payment     *payments.Payment `json:"payment"`
	PaymentLink string            `json:"paymentLink,omitempty"`
}

func (h *PaymentsHandler) log() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/process", h.processReservation)
		r.Get("/verify/{reference}", h.verify)
		r.Post("/callback", h.callback)
		r.Get("/callback/success-{provider}", h.redirect(orchestrator.OutcomeSuccess))
		r.Post("/callback/success-{provider}", h.redirect(orchestrator.OutcomeSuccess))
		r.Get("/callback/error-{provider}", h.redirect(orchestrator.OutcomeFailure))
		r.Post("/callback/error-{provider}", h.redirect(orchestrator.OutcomeFailure))
		r.Post("/{reference}/link", h.regenerateLink)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/", h.create)
			r.Get("/user/{userId}", h.byUser)
			r.Put("/{id}/status", h.updateStatus)
			r.Post("/{reference}/cancel", h.cancel)
			r.Post("/{reference}/refund", h.refund)
		})
	})
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := decode(r, &req); err != nil {
		fail(w, h.log(), err)
		return
	}
	p, err := h.Svc.InitiatePayment(r.Context(), orchestrator.PaymentInput{
		Amount:      req.Amount,
		Currency:    payments.Currency(req.Currency),
		Method:      payments.Method(req.Method),
		Type:        payments.Type(req.Type),
		Reference:   req.Reference,
		Client:      req.Client,
		Phone:       req.Phone,
		Email:       req.Email,
		Description: req.Description,
		Metadata:    req.Metadata,
		RequireLink: req.RequireLink,
	}, requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusCreated, "payment created", paymentResp{Payment: p, PaymentLink: p.PaymentLink})
}

func (h *PaymentsHandler) processReservation(w http.ResponseWriter, r *http.Request) {
	var req processReservationReq
	if err := decode(r, &req); err != nil {
		fail(w, h.log(), err)
		return
	}
	p, err := h.Svc.InitiateForReservation(r.Context(), orchestrator.ReservationPaymentInput{
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Method:        req.PaymentMethod,
		PhoneNumber:   req.PhoneNumber,
	}, requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusCreated, "payment initiated", paymentResp{Payment: p, PaymentLink: p.PaymentLink})
}

func (h *PaymentsHandler) verify(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Verify(r.Context(), chi.URLParam(r, "reference"), requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "", p)
}

func (h *PaymentsHandler) byUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.PaymentsByUser(r.Context(), chi.URLParam(r, "userId"), requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

func (h *PaymentsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decode(r, &req); err != nil {
		fail(w, h.log(), err)
		return
	}
	p, err := h.Svc.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"),
		payments.Status(req.Status), req.TransactionID, requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "payment status updated", p)
}

func (h *PaymentsHandler) regenerateLink(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.RegenerateLink(r.Context(), chi.URLParam(r, "reference"), requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "payment link generated", paymentResp{Payment: p, PaymentLink: p.PaymentLink})
}

func (h *PaymentsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.CancelPayment(r.Context(), chi.URLParam(r, "reference"), requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "payment cancelled", p)
}

func (h *PaymentsHandler) refund(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.RefundPayment(r.Context(), chi.URLParam(r, "reference"), requester(r))
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "payment refunded", p)
}

// callback is the server-to-server notification.
func (h *PaymentsHandler) callback(w http.ResponseWriter, r *http.Request) {
	var req callbackReq
	if err := decode(r, &req); err != nil {
		fail(w, h.log(), err)
		return
	}
	outcome, err := orchestrator.OutcomeFromStatus(req.Status)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	p, err := h.Svc.HandleCallback(r.Context(), req.Reference, outcome, req.TransactionID)
	if err != nil {
		fail(w, h.log(), err)
		return
	}
	ok(w, http.StatusOK, "callback processed", p)
}

// Messages shown by the front end after a provider redirect.
const (
	msgPaid          = "Paiement effectué avec succès"
	msgFailed        = "Le paiement a echoué"
	msgMissingParams = "Paramètres manquants"
	msgUnknownRef    = "Référence de paiement invalide"
	msgProcessing    = "Erreur lors du traitement du paiement"

	// the error route has always sent this one unaccented
	msgUnknownRefOnError = "Reference de paiement invalide"
)

// redirect handles the payer coming back from the provider page. The answer
// is always a redirect to the front end, whatever happened.
func (h *PaymentsHandler) redirect(outcome orchestrator.Outcome) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("reference")
		if ref == "" && r.Method == http.MethodPost {
			ref = r.PostFormValue("reference")
		}
		if ref == "" {
			h.toFrontend(w, r, "error", msgMissingParams)
			return
		}

		_, err := h.Svc.HandleCallback(r.Context(), ref, outcome, "")
		switch {
		case apperr.IsKind(err, apperr.KindNotFound) && outcome == orchestrator.OutcomeFailure:
			h.toFrontend(w, r, "error", msgUnknownRefOnError)
		case apperr.IsKind(err, apperr.KindNotFound):
			h.toFrontend(w, r, "error", msgUnknownRef)
		case err != nil:
			h.log().Warn("provider redirect not applied", "reference", ref,
				"provider", chi.URLParam(r, "provider"), "outcome", outcome, "err", err)
			h.toFrontend(w, r, "error", msgProcessing)
		case outcome == orchestrator.OutcomeSuccess:
			h.toFrontend(w, r, "success", msgPaid)
		default:
			h.toFrontend(w, r, "error", msgFailed)
		}
	}
}

// toFrontend percent-encodes spaces as %20; the front end does not decode '+'.
func (h *PaymentsHandler) toFrontend(w http.ResponseWriter, r *http.Request, status, message string) {
	q := "status=" + queryEscape(status) + "&message=" + queryEscape(message)
	http.Redirect(w, r, h.FrontendURL+"?"+q, http.StatusFound)
}

func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
