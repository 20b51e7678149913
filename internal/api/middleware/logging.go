// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// credentialParams are query parameter names whose values never belong in
// logs. The key management endpoints take credentials in the request body,
// but provider tokens also show up in pasted URLs and test requests.
var credentialParams = map[string]bool{
	"api_key":    true,
	"api_secret": true,
	"apikey":     true,
	"token":      true,
	"secret":     true,
	"password":   true,
}

// Logging logs one line per request with method, path, status, response
// size and timing. Query strings are scrubbed before logging.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, req)

			logger.Info("http request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", scrubQuery(req.URL.Query())),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(started)),
				slog.String("remote", req.RemoteAddr),
			)
		})
	}
}

// recordingWriter captures the status code and body size for logging.
type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// scrubQuery renders query parameters with credential values redacted.
func scrubQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	scrubbed := url.Values{}
	for name, vals := range values {
		if isCredentialParam(name) {
			scrubbed.Set(name, "REDACTED")
			continue
		}
		scrubbed[name] = vals
	}
	return scrubbed.Encode()
}

// isCredentialParam reports whether a parameter name matches a known
// credential name outright or ends in one, which catches prefixed
// variants like spotify_token.
func isCredentialParam(name string) bool {
	lower := strings.ToLower(name)
	if credentialParams[lower] {
		return true
	}
	for p := range credentialParams {
		if strings.HasSuffix(lower, "_"+p) {
			return true
		}
	}
	return false
}
