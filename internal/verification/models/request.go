package models

// VerificationRequest is the per-call input to the engine. DeviceInfo and
// IPAddress are recorded verbatim. DeviceFingerprint and UserAgent feed only
// the risk context; an empty fingerprint falls back to DeviceInfo.
type VerificationRequest struct {
	Selfie            []byte
	Document          []byte
	RequiredScore     *float64
	DeviceInfo        string
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
}

// RiskDevice is the device key used for risk history.
func (r VerificationRequest) RiskDevice() string {
	if r.DeviceFingerprint != "" {
		return r.DeviceFingerprint
	}
	return r.DeviceInfo
}

// RiskContext summarises prior behaviour associated with the caller's device
// and network. It can only raise the acceptance bar.
type RiskContext struct {
	DeviceFailures int
	IPFailures     int
	Automated      bool
	// Degraded is set when the risk history could not be read.
	Degraded bool
}

// Elevated reports whether any signal is present.
func (r RiskContext) Elevated() bool {
	return r.DeviceFailures > 0 || r.IPFailures > 0 || r.Automated || r.Degraded
}
