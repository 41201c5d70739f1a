package security

import "net/http"

// BodyLimit caps request body size. Reads past the limit fail and the
// middleware rejects requests whose declared Content-Length already exceeds
// the cap.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				if r.ContentLength > maxBytes {
					http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
