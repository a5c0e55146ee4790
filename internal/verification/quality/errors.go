package quality

import "errors"

var (
	ErrImageDecode           = errors.New("image could not be decoded")
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	// ErrDetectorUnavailable means the detector itself failed, not the image.
	ErrDetectorUnavailable = errors.New("face detector unavailable")
)
