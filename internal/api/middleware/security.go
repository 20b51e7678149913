package middleware

import "net/http"

// SecurityHeaders sets response headers for a JSON API that is never
// rendered as a document. The blanket CSP keeps a response from executing
// anything if a browser is ever tricked into treating it as HTML.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, req)
	})
}
