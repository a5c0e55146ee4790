package device

import (
	"net/http"

	"faceverify/pkg/requestcontext"
)

// Fingerprinter derives a stable device fingerprint from a User-Agent.
type Fingerprinter interface {
	ComputeFingerprint(userAgent string) string
}

// Middleware stores a fingerprint derived from the request's User-Agent.
// It must run after metadata.ClientMetadata.
func Middleware(fp Fingerprinter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ua := requestcontext.UserAgent(ctx); ua != "" {
				if fingerprint := fp.ComputeFingerprint(ua); fingerprint != "" {
					ctx = requestcontext.WithDeviceFingerprint(ctx, fingerprint)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
