package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"megasena/internal/models"
)

type contextKey struct{}

// FromContext returns the identity placed on the request by RequireUser or
// RequireAdmin.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// RequireUser rejects requests without a valid bearer token and attaches the
// caller identity to the request context.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.authenticate(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, identity)))
	})
}

// RequireAdmin additionally rejects callers without the ADMIN role.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.authenticate(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if identity.Role != models.RoleAdmin {
			s.log.Warn().Str("username", identity.Username).Msg("admin operation denied")
			deny(w, http.StatusForbidden, "access denied")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, identity)))
	})
}

func (s *Service) authenticate(r *http.Request) (Identity, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, false
	}
	identity, err := s.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return Identity{}, false
	}
	return identity, true
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
