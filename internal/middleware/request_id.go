package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/servis/recharge-bot/internal/pkg/logger"
)

// RequestID tags each request with an id and a request-scoped logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		r.Header.Set("X-Request-ID", requestID)

		ctx := logger.WithFields(r.Context(), map[string]string{"request_id": requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
