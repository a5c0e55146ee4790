package testutil

import (
	"net/http"

	"faceverify/pkg/requestcontext"
)

// WithClient sets what the metadata middleware would record for req.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithDevice sets what the device middleware would derive for req.
func WithDevice(req *http.Request, fingerprint string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceFingerprint(req.Context(), fingerprint))
}
