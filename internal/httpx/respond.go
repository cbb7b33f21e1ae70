package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-placement-payments/internal/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: msg, Data: data})
}

// fail maps err to a status code. Errors without a kind are internal and
// their text is logged, not returned.
func fail(w http.ResponseWriter, log *slog.Logger, err error) {
	code := statusFor(apperr.KindOf(err))
	msg := err.Error()
	if code == http.StatusInternalServerError {
		if log == nil {
			log = slog.Default()
		}
		log.Error("request failed", "err", err)
		msg = "internal server error"
	}
	var e *apperr.Error
	if errors.As(err, &e) && e.Msg != "" && code == http.StatusBadGateway {
		// upstream bodies stay in the logs
		msg = e.Msg
	}
	writeJSON(w, code, envelope{Success: false, Message: msg})
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindProviderUnavailable, apperr.KindProviderRejected:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
