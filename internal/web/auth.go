package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/camuig/miner-advisor/internal/users"
)

const sessionCookie = "session_token"

type contextKey string

const ownerKey contextKey = "owner_id"

// ownerID returns the authenticated owner for a request that passed the
// auth middleware.
func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(ownerKey).(string)
	return id
}

// auth resolves the session cookie to an owner id before the handler runs.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		id, err := s.users.Verify(cookie.Value)
		if err != nil {
			if errors.Is(err, users.ErrSessionExpired) {
				s.clearSessionCookie(w)
				s.writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			s.writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey, id)))
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
