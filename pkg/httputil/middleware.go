package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/actor"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/logger"
	"github.com/DikshantJangra/hoperxpharma-sub019/pkg/store"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			requestID := GetRequestID(r.Context())
			actorID := ""
			if act := actor.FromContext(r.Context()); act != nil {
				actorID = act.ID
			}

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Str("actor_id", actorID).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// StoreMiddleware extracts the pharmacy store scope from headers (set by the
// API gateway) and adds it to the request context.
//
// Every inventory and dispensing query is scoped by store, so a request
// without a store is rejected before it reaches a handler.
//
// Headers expected (set by the gateway's auth layer):
//   - X-Store-ID: Store UUID
//
// Exception: /health is allowed without store context for monitoring.
func StoreMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		storeID := r.Header.Get("X-Store-ID")
		if storeID == "" {
			http.Error(w, `{"error":"missing store context"}`, http.StatusForbidden)
			return
		}

		ctx := store.WithStoreID(r.Context(), storeID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorMiddleware extracts the acting user from headers (set by the API
// gateway after authentication) and adds it to the request context.
//
// Headers expected:
//   - X-Actor-ID: User UUID
//   - X-Actor-Name: Display name (for audit rows)
//   - X-Actor-Role: Role name (pharmacist, technician)
//
// Requests without an actor fall back to the system actor so that internal
// callers (schedulers, event consumers replayed over HTTP) still work.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get("X-Actor-ID")
		if actorID == "" {
			next.ServeHTTP(w, r)
			return
		}

		act := &actor.Actor{
			ID:       actorID,
			Name:     r.Header.Get("X-Actor-Name"),
			StoreID:  r.Header.Get("X-Store-ID"),
			RoleName: r.Header.Get("X-Actor-Role"),
		}

		next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), act)))
	})
}
