package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/logger"
	"github.com/fjod/go_cart/cartmutation/internal/service"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderAccountID = "X-Account-ID"
	HeaderCartToken = "X-Cart-Token"
)

type credentialKey struct{}

// CredentialMiddleware reads the owner credential. The account id is set by
// the authentication layer in front of this service.
func CredentialMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := service.Credential{
			AccountID: r.Header.Get(HeaderAccountID),
			CartToken: r.Header.Get(HeaderCartToken),
		}
		ctx := context.WithValue(r.Context(), credentialKey{}, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func credentialFromContext(ctx context.Context) service.Credential {
	cred, _ := ctx.Value(credentialKey{}).(service.Credential)
	return cred
}

// LoggingMiddleware writes one structured record per request.
func LoggingMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.FromContext(r.Context(), base).Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
