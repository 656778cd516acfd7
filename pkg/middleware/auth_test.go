package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func inOneHour() *jwt.NumericDate {
	return jwt.NewNumericDate(time.Now().Add(time.Hour))
}

// ============================================================================
// JWTValidator
// ============================================================================

func TestJWTValidator_ValidToken(t *testing.T) {
	validate := JWTValidator(testSecret)

	claims, err := validate(signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-123",
		"email":   "ada@example.com",
		"role":    "admin",
		"exp":     inOneHour(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestJWTValidator_SubjectFallback(t *testing.T) {
	claims, err := JWTValidator(testSecret)(signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-456",
		"exp": inOneHour(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestJWTValidator_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"wrong secret", func(t *testing.T) string {
			return signToken(t, "other-secret", jwt.MapClaims{"sub": "u", "exp": inOneHour()})
		}},
		{"expired", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"sub": "u", "exp": jwt.NewNumericDate(time.Now().Add(-time.Minute))})
		}},
		{"no expiry", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"sub": "u"})
		}},
		{"no subject", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"exp": inOneHour()})
		}},
		{"unsigned", func(t *testing.T) string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u", "exp": inOneHour()}).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return token
		}},
		{"garbage", func(*testing.T) string { return "not-a-jwt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JWTValidator(testSecret)(tt.token(t))
			assert.Error(t, err)
		})
	}
}

// ============================================================================
// Auth / RequireRole
// ============================================================================

func TestAuth_StoresClaims(t *testing.T) {
	var got *Claims
	handler := Auth(JWTValidator(testSecret), newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
		assert.Equal(t, "user-1", UserIDFromContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "exp": inOneHour()}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
}

func TestAuth_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"invalid token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(JWTValidator(testSecret), newTestLogger())(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			code, _ := decodeError(t, rec)
			assert.Equal(t, "UNAUTHORIZED", code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"admin", &Claims{UserID: "a", Role: RoleAdmin}, http.StatusOK},
		{"customer", &Claims{UserID: "c", Role: "authenticated"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(RoleAdmin)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
