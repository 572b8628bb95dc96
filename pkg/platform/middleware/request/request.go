// Package request provides middleware that attaches request-scoped metadata
// (correlation ID, request time, client IP, user agent) to the context.
package request

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"

	"acceso/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound correlation ID header.
const HeaderRequestID = "X-Request-Id"

// GetRequestID retrieves the correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}

// Middleware assigns a request ID (reusing the inbound header when present),
// records the request time, and captures client IP and user agent for
// downstream services.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())

		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr; proxies are expected to rewrite
// RemoteAddr before the request reaches us.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
