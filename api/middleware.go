package api

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"
)

const timeLayout = "02/Jan/2006:15:04:05 -0700"

type contextKey string

const authTokenKey contextKey = "auth-token"

// A specialized `http.ResponseWriter` for logging.
type loggingResponseWriter struct {
	http.ResponseWriter
	status     int
	contentLen int
}

// Write the header for the given status code.
func (l *loggingResponseWriter) WriteHeader(status int) {
	l.status = status
	l.ResponseWriter.WriteHeader(status)
}

// Write the given content to the client.
func (l *loggingResponseWriter) Write(content []byte) (int, error) {
	l.contentLen += len(content)
	return l.ResponseWriter.Write(content)
}

// A middleware that provides logging for each HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := loggingResponseWriter{
			ResponseWriter: w,
			status:         200,
			contentLen:     0,
		}
		next.ServeHTTP(&logger, r)
		log.Printf("%s - - [%s] \"%s %s %s\" %d %d",
			r.RemoteAddr,
			time.Now().Format(timeLayout),
			r.Method,
			r.URL,
			r.Proto,
			logger.status,
			logger.contentLen)
	})
}

// A middleware for wrapping routes that require an upstream auth token.
//
// If the auth-token header is present, its value is provided through the
// context. Otherwise the request is rejected before any outbound call is
// attempted.
func (api *API) withAuthTokenRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AuthTokenHeader)

		if len(token) == 0 {
			http.Error(w, "Missing auth-token header.", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// A middleware that rejects excess login attempts per source address before
// they reach the upstream.
func (api *API) withLoginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !api.currentLimiter().Allow(sourceAddr(r)) {
			http.Error(w, "Too many login attempts. Try again later.",
				http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// The source address of a request, without the port.
func sourceAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// The auth token stored on the request context by `withAuthTokenRequired`.
func authToken(r *http.Request) string {
	token, _ := r.Context().Value(authTokenKey).(string)
	return token
}
