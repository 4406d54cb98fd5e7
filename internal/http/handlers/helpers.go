package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/estateone/tour-engine/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// serviceError maps lifecycle errors onto HTTP statuses. Internal details
// never leak on 500s.
func serviceError(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNotFound):
		jsonError(w, "booking not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrForbidden):
		jsonError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, booking.ErrInvalidState):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// requesterID identifies the caller. The engine sits behind the brokerage
// gateway, which authenticates users and forwards the identity header.
func requesterID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}
