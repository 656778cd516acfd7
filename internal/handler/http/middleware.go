package http

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

type contextKey string

const cartSessionKey contextKey = "cart_session"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// CartSession resolves the caller's cart session from the X-Cart-Session
// header. A missing or malformed id is replaced by a fresh one, which is
// echoed back in the response header so the client can keep using it.
func CartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(middleware.CartSessionHeader))
		if !sessionIDPattern.MatchString(id) {
			id = service.NewSessionID()
			r.Header.Set(middleware.CartSessionHeader, id)
		}
		w.Header().Set(middleware.CartSessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cartSessionKey, id)))
	})
}

func cartSessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(cartSessionKey).(string)
	return id
}

// ContentTypeJSON rejects request bodies that are not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func callerFromContext(ctx context.Context) service.Caller {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		return service.Caller{}
	}
	return service.Caller{UserID: claims.UserID, IsAdmin: claims.IsAdmin()}
}
