package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/orchestrator"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/go-chi/chi/v5"
)

type ReservationsHandler struct {
	Svc *orchestrator.Service
	Log *slog.Logger
}

type createReservationReq struct {
	EmployerID  string    `json:"employerId"`
	ServiceID   string    `json:"serviceId"`
	ClientName  string    `json:"clientName" validate:"omitempty,max=255"`
	ClientEmail string    `json:"clientEmail" validate:"omitempty,email"`
	ClientPhone string    `json:"clientPhone" validate:"omitempty,max=32"`
	Name        string    `json:"name" validate:"omitempty,max=255"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Phone       string    `json:"phone" validate:"omitempty,max=32"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	Address     string    `json:"address" validate:"required"`
	Amount      int64     `json:"amount" validate:"gte=0"`
	Notes       string    `json:"notes"`
}

type reservationStatusReq struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED CANCELLED COMPLETED"`
}

func (h *ReservationsHandler) Register(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/track", h.track)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Get("/user/{userId}", h.byUser)
			r.Get("/{id}", h.get)
			r.Patch("/{id}/status", h.updateStatus)
		})
	})
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createReservationReq
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	res, err := h.Svc.CreateReservation(r.Context(), orchestrator.ReservationInput{
		EmployerID:  req.EmployerID,
		ServiceID:   req.ServiceID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		StartDate:   req.StartDate,
		Address:     req.Address,
		Amount:      req.Amount,
		Notes:       req.Notes,
	}, requester(r))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	ok(w, http.StatusCreated, "reservation created", res)
}

func (h *ReservationsHandler) track(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Svc.TrackReservation(r.Context(), q.Get("id"), q.Get("email"))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", res)
}

func (h *ReservationsHandler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.GetReservation(r.Context(), chi.URLParam(r, "id"), requester(r))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", res)
}

func (h *ReservationsHandler) byUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ReservationsByUser(r.Context(), chi.URLParam(r, "userId"), requester(r))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

func (h *ReservationsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req reservationStatusReq
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	res, err := h.Svc.UpdateReservationStatus(r.Context(), chi.URLParam(r, "id"),
		reservations.Status(req.Status), requester(r))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "reservation status updated", res)
}
