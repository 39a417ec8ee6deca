package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/repos/profiles"
)

type ctxKey int

const userIDKey ctxKey = iota

// Identity trusts the fronting identity service: it has already
// verified the bearer credentials and forwards the subject in
// X-User-ID. The core never parses credentials itself.
func (h *HandlerProvider) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates privileged routes on the caller's profile role.
func (h *HandlerProvider) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := callerUserID(r)

		prof, err := h.profiles.Get(r.Context(), callerID)
		if err != nil {
			if errors.Is(err, profiles.ErrProfileNotFound) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if prof.IsDeleted || prof.Role != profiles.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callerUserID returns the verified caller identity set by Identity.
func callerUserID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}
