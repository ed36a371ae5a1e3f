package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dumpsift/internal/infrastructure"
)

// RequestID assigns every request an ID: the client's X-Request-ID when
// present, a fresh UUID otherwise. The ID is echoed in the response header,
// stored under chi's context key, and doubles as the trace ID until the
// tracing middleware replaces it with a real one. Must run first in the
// chain.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		ctx = infrastructure.WithTraceID(ctx, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReqID reads the request ID from the context.
func GetReqID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// GetRequestID reads the request ID, falling back to the trace ID when
// the context passed through code that only carries traces.
func GetRequestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return infrastructure.GetTraceID(ctx)
}

// StructuredLogger logs one record at request start and one at completion,
// both tagged with the trace ID. Runs after RequestID and RealIP so those
// values are populated.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			l := logger
			if id := requestTraceID(ctx); id != "" {
				l = logger.With(slog.String("trace_id", id))
			}

			l.InfoContext(ctx, "request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			l.InfoContext(ctx, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("duration", time.Since(start).String()))
		})
	}
}

// requestTraceID prefers the trace ID and falls back to the request ID,
// so log correlation survives even when tracing is disabled.
func requestTraceID(ctx context.Context) string {
	if id := infrastructure.GetTraceID(ctx); id != "" {
		return id
	}
	return middleware.GetReqID(ctx)
}

// Recoverer converts a handler panic into a logged 500 problem response
// instead of tearing down the connection.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				ctx := r.Context()

				logger.ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))

				WriteProblem(w, ProblemFromStatus(http.StatusInternalServerError,
					"An unexpected error occurred", requestTraceID(ctx)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter caps the request rate across all clients with a single
// token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter builds a limiter allowing rps sustained requests per
// second with the given burst headroom.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst), logger: logger}
}

// Handler rejects requests over the limit with 429 and a Retry-After hint.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		rl.logger.WarnContext(ctx, "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		w.Header().Set("Retry-After", "60")
		WriteProblem(w, ProblemFromStatus(http.StatusTooManyRequests,
			"Rate limit exceeded. Please retry after 60 seconds", infrastructure.GetTraceID(ctx)))
	})
}

// Timeout bounds handler execution. The handler runs in its own goroutine;
// when the deadline passes first, the client gets a 504 problem response
// and the handler keeps running against a cancelled context.
func Timeout(timeout time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logger.ErrorContext(r.Context(), "request timeout",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("timeout", timeout.String()))

				WriteProblem(w, ProblemFromStatus(http.StatusGatewayTimeout,
					"The request took too long to process", infrastructure.GetTraceID(r.Context())))
			}
		})
	}
}

// CORSConfig declares the cross-origin policy applied by CORS.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Logger           *slog.Logger
}

// CORS applies the configured cross-origin policy and answers preflight
// requests with 204. An empty origin list allows everything.
func CORS(cfg CORSConfig) func(next http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 300
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := originAllowed(cfg.AllowedOrigins, origin)
			h := w.Header()

			switch {
			case allowed && origin != "":
				h.Set("Access-Control-Allow-Origin", origin)
			case len(cfg.AllowedOrigins) > 0 && cfg.AllowedOrigins[0] == "*":
				h.Set("Access-Control-Allow-Origin", "*")
			}

			h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			if len(cfg.ExposedHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				if cfg.Logger != nil {
					cfg.Logger.DebugContext(r.Context(), "CORS preflight request",
						slog.String("origin", origin),
						slog.Bool("allowed", allowed))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, candidate := range allowedOrigins {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

// RealIP resolves the client address from forwarding headers, via chi.
func RealIP(next http.Handler) http.Handler {
	return middleware.RealIP(next)
}
