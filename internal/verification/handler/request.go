package handler

import (
	"encoding/base64"
	"math"
	"strings"

	dErrors "faceverify/pkg/domain-errors"
)

// verifyRequest is the POST /v1/verifications body. Images are base64,
// optionally as data URLs.
type verifyRequest struct {
	Selfie        string   `json:"selfie"`
	Document      string   `json:"document"`
	RequiredScore *float64 `json:"required_score,omitempty"`
	DeviceInfo    string   `json:"device_info,omitempty"`

	selfie   []byte
	document []byte
}

func (r *verifyRequest) Validate() error {
	var err error
	if r.selfie, err = decodeImage("selfie", r.Selfie); err != nil {
		return err
	}
	if r.document, err = decodeImage("document", r.Document); err != nil {
		return err
	}
	if r.RequiredScore != nil {
		v := *r.RequiredScore
		if math.IsNaN(v) || v < 0 || v > 1 {
			return dErrors.New(dErrors.CodeValidation, "required_score must be between 0 and 1")
		}
	}
	return nil
}

func decodeImage(field, raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if strings.HasPrefix(raw, "data:") {
		_, payload, ok := strings.Cut(raw, ",")
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, field+" is not a valid data URL")
		}
		raw = payload
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" is not valid base64")
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, field+" is empty")
	}
	return data, nil
}
