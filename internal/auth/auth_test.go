package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/swiftparcel/delivery/internal/apperr"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestVerifier_Parse_OK(t *testing.T) {
	userID := uuid.New()
	token := sign(t, testSecret, jwt.MapClaims{
		"userId": userID.String(),
		"role":   "ADMIN",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	p, err := NewVerifier(testSecret).Parse(token)
	require.NoError(t, err)
	require.Equal(t, userID, p.UserID)
	require.Equal(t, RoleAdmin, p.Role)
}

func TestVerifier_Parse_Expired(t *testing.T) {
	token := sign(t, testSecret, jwt.MapClaims{
		"userId": uuid.NewString(),
		"role":   "USER",
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Parse(token)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestVerifier_Parse_WrongSecret(t *testing.T) {
	token := sign(t, "other-secret", jwt.MapClaims{
		"userId": uuid.NewString(),
		"role":   "USER",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Parse(token)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestVerifier_Parse_BadClaims(t *testing.T) {
	v := NewVerifier(testSecret)

	token := sign(t, testSecret, jwt.MapClaims{
		"userId": "not-a-uuid",
		"role":   "USER",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	_, err := v.Parse(token)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	token = sign(t, testSecret, jwt.MapClaims{
		"userId": uuid.NewString(),
		"role":   "SUPERVISOR",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Parse(token)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)

	_, err = ParseRole("SUPERVISOR")
	require.Error(t, err)
}

func TestPolicy(t *testing.T) {
	user := Principal{UserID: uuid.New(), Role: RoleUser}
	admin := Principal{UserID: uuid.New(), Role: RoleAdmin}
	root := Principal{UserID: uuid.New(), Role: RoleRoot}

	for _, a := range []Action{ActionViewAnyOrder, ActionUpdateOrder, ActionCancelAnyOrder, ActionCreateAnyOrder, ActionViewAnyTracking} {
		require.False(t, user.Allowed(a), string(a))
		require.True(t, admin.Allowed(a), string(a))
		require.True(t, root.Allowed(a), string(a))
	}

	// Unknown roles get nothing.
	nobody := Principal{UserID: uuid.New(), Role: Role("GUEST")}
	require.False(t, nobody.Allowed(ActionViewAnyOrder))
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)
	userID := uuid.New()

	var seen *Principal
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := FromContext(r.Context()); ok {
			seen = &p
		}
		w.WriteHeader(http.StatusOK)
	}))

	// Valid token: principal lands in the context.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, jwt.MapClaims{
		"userId": userID.String(),
		"role":   "USER",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, userID, seen.UserID)

	// Garbage token: rejected before the handler runs.
	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)

	// No token: passes through without a principal.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, seen)
}
