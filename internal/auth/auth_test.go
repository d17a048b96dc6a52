package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"megasena/internal/models"
	"megasena/internal/store"
)

func newTestAuth(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(st, "test-secret", time.Hour, zerolog.Nop()), st
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	user, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotEqual(t, "s3cret", user.PasswordHash, "credential must be stored hashed")

	t.Run("MissingFields", func(t *testing.T) {
		_, err := svc.Register(ctx, "", "pw")
		require.ErrorIs(t, err, ErrMissingCredentials)
		_, err = svc.Register(ctx, "bob", "")
		require.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		_, err := svc.Register(ctx, "alice", "other")
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("LoginAndParse", func(t *testing.T) {
		token, logged, err := svc.Login(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.Equal(t, user.ID, logged.ID)

		identity, err := svc.ParseToken(token)
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.UserID)
		require.Equal(t, "alice", identity.Username)
		require.Equal(t, models.RoleUser, identity.Role)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody", "pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := svc.ParseToken("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestAuth(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "pw"))

	admin, err := st.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)

	// Idempotent on restart.
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "pw"))

	// Unset env keeps it a no-op.
	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	_, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "pw"))

	userToken, _, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	adminToken, _, err := svc.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	do := func(handler http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("NoToken", func(t *testing.T) {
		rec := do(svc.RequireUser(next), "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UserToken", func(t *testing.T) {
		rec := do(svc.RequireUser(next), userToken)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", seen.Username)
	})

	t.Run("UserTokenOnAdminRoute", func(t *testing.T) {
		rec := do(svc.RequireAdmin(next), userToken)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AdminToken", func(t *testing.T) {
		rec := do(svc.RequireAdmin(next), adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, models.RoleAdmin, seen.Role)
	})
}
