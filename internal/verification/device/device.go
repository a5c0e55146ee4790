// Package device derives coarse client identity from the User-Agent: a
// stable fingerprint for risk keys, a display string and an automation flag.
package device

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// automationClients are HTTP libraries and tools that identify themselves
// by browser name but are never a person holding a camera.
var automationClients = map[string]struct{}{
	"curl":            {},
	"Wget":            {},
	"python-requests": {},
	"Go-http-client":  {},
	"okhttp":          {},
	"PostmanRuntime":  {},
}

type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ComputeFingerprint hashes browser name and major version, OS and platform.
// Minor browser updates keep the fingerprint stable.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.enabled || strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")

	sum := blake2b.Sum256([]byte(strings.Join([]string{name, major, ua.OS(), ua.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}

// ParseUserAgent returns a short display string such as "Chrome on macOS".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	name, _ := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", name, os))
}

// IsAutomated reports whether the User-Agent belongs to a crawler, a
// headless browser or a scripting client. An empty User-Agent counts.
func IsAutomated(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return true
	}
	if strings.Contains(userAgent, "HeadlessChrome") {
		return true
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return true
	}
	name, _ := ua.Browser()
	_, tool := automationClients[name]
	return tool
}
