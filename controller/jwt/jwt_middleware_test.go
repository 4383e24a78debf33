package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"chirp/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "user-1",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).UnixMilli(),
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func middlewareRecorder(t *testing.T, authHeader string) (*httptest.ResponseRecorder, *model.AuthUser) {
	t.Helper()

	var captured *model.AuthUser
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authUser, ok := AuthUserFromContext(r.Context()); ok {
			captured = &authUser
		}
		w.WriteHeader(http.StatusOK)
	})

	mw := ExtractJWTUserMiddleware(testSecret, trace.NewNoopTracerProvider().Tracer("test"))

	req := httptest.NewRequest(http.MethodGet, "/tweets/feed", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)
	return rec, captured
}

func TestValidTokenSetsAuthUser(t *testing.T) {
	rec, authUser := middlewareRecorder(t, "Bearer "+signToken(t, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, authUser)
	assert.Equal(t, "user-1", authUser.ID)
	assert.Equal(t, "alice", authUser.Username)
}

func TestMissingTokenPassesThroughAnonymously(t *testing.T) {
	rec, authUser := middlewareRecorder(t, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, authUser)
}

func TestGarbageTokenRejected(t *testing.T) {
	rec, authUser := middlewareRecorder(t, "Bearer not-a-token")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, authUser)
}

func TestWrongSecretRejected(t *testing.T) {
	rec, authUser := middlewareRecorder(t, "Bearer "+signToken(t, "other-secret"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, authUser)
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	mw := ExtractJWTUserMiddleware(testSecret, trace.NewNoopTracerProvider().Tracer("test"))
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret))
	rec = httptest.NewRecorder()
	mw(http.HandlerFunc(handler)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
