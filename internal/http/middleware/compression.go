package middleware

import (
	"net/http"
	"strings"
)

// SkipCompressionFor wraps a compression middleware so that requests for
// paths with one of the given prefixes bypass it. Health probes are tiny
// and polled often.
func SkipCompressionFor(compressionHandler func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range prefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			compressedHandler.ServeHTTP(w, r)
		})
	}
}
