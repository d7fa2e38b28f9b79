package auth

import (
	"fmt"
	"net/http"

	"github.com/erpgate/erpgate/internal/platform/httpx"
	"github.com/erpgate/erpgate/internal/shared"
)

// Middleware authenticates every request and stores the caller identity in
// the request context. Anonymous requests are rejected.
func Middleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := service.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				httpx.Error(w, err, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), caller)))
		})
	}
}

// RequireWrite rejects callers whose key lacks the write role. Mutating
// endpoints sit behind it; read-only lookups do not.
func RequireWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := shared.CallerFromContext(r.Context())
		if caller == nil {
			httpx.Error(w, fmt.Errorf("%w: no credentials supplied", httpx.ErrUnauthenticated), nil)
			return
		}
		if !caller.CanWrite {
			httpx.Error(w, fmt.Errorf("%w: api key is read-only", httpx.ErrPermissionDenied), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
