package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const (
	requestIDHeader      = "X-Request-Id"
	shopifyDeliveryIDHdr = "X-Shopify-Webhook-Id"
)

// Upstream ids end up in logs and outbox metadata, so only short opaque
// tokens are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestID correlates a request across logs. It reuses a well-formed
// X-Request-Id, falls back to the Shopify delivery id for webhooks and
// otherwise mints a uuid.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := resolveRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveRequestID(r *http.Request) string {
	for _, header := range []string{requestIDHeader, shopifyDeliveryIDHdr} {
		if id := r.Header.Get(header); requestIDPattern.MatchString(id) {
			return id
		}
	}
	return uuid.NewString()
}
