// Package quality judges whether a single capture is good enough to compare
// and prepares the face crop the metric providers consume.
package quality

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"faceverify/internal/verification/config"
	"faceverify/internal/verification/models"
)

// Detection is one face found by a FaceDetector. Box and Landmarks are in
// source image coordinates.
type Detection struct {
	Box        image.Rectangle
	Landmarks  []models.Point
	Confidence float64
}

// FaceDetector locates faces in a decoded image.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Assessment is the quality verdict for one image.
type Assessment struct {
	Quality    float64
	Sharpness  float64
	Resolution float64
	Exposure   float64
	Crop       *models.FaceCrop
}

type Assessor struct {
	detector FaceDetector
	cfg      config.Quality
	logger   *slog.Logger
}

type Option func(*Assessor)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assessor) {
		a.logger = logger
	}
}

func WithConfig(cfg config.Quality) Option {
	return func(a *Assessor) {
		a.cfg = cfg
	}
}

func New(detector FaceDetector, opts ...Option) (*Assessor, error) {
	if detector == nil {
		return nil, errors.New("face detector is required")
	}
	a := &Assessor{
		detector: detector,
		cfg:      config.DefaultCalibration().Quality,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.CropSize <= 0 || a.cfg.MinFaceSize <= 0 || a.cfg.SharpnessReference <= 0 {
		return nil, errors.New("quality crop size, min face size and sharpness reference must be positive")
	}
	return a, nil
}

// Assess decodes data, locates exactly one face and scores the capture.
func (a *Assessor) Assess(ctx context.Context, data []byte) (*Assessment, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	detections, err := a.detector.Detect(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	face, err := a.selectFace(detections, img.Bounds())
	if err != nil {
		return nil, err
	}

	region := expand(face.Box, a.cfg.CropMargin, img.Bounds())
	cropImg := NormalizeCrop(img, region, a.cfg.CropSize)
	crop := models.NewFaceCrop(cropImg, face.Box, rebase(face.Landmarks, region, a.cfg.CropSize), face.Confidence)

	lum, width := luminance(cropImg)
	assessment := &Assessment{
		Sharpness:  clamp01(laplacianVariance(lum, width) / a.cfg.SharpnessReference),
		Resolution: clamp01(float64(min(face.Box.Dx(), face.Box.Dy())) / float64(a.cfg.MinFaceSize)),
		Exposure:   exposureScore(lum),
		Crop:       crop,
	}
	assessment.Quality = clamp01(
		a.cfg.SharpnessWeight*assessment.Sharpness +
			a.cfg.ResolutionWeight*assessment.Resolution +
			a.cfg.ExposureWeight*assessment.Exposure,
	)

	if a.logger != nil {
		a.logger.DebugContext(ctx, "image assessed",
			"quality", assessment.Quality,
			"sharpness", assessment.Sharpness,
			"resolution", assessment.Resolution,
			"exposure", assessment.Exposure,
		)
	}
	return assessment, nil
}

func (a *Assessor) selectFace(detections []Detection, bounds image.Rectangle) (Detection, error) {
	var confident []Detection
	for _, d := range detections {
		if d.Confidence >= a.cfg.DetectorFloor {
			confident = append(confident, d)
		}
	}
	switch {
	case len(confident) == 0:
		return Detection{}, ErrNoFaceDetected
	case len(confident) > 1:
		return Detection{}, fmt.Errorf("%w: %d faces", ErrMultipleFacesDetected, len(confident))
	}

	face := confident[0]
	face.Box = face.Box.Intersect(bounds)
	if face.Box.Empty() {
		return Detection{}, ErrNoFaceDetected
	}
	return face, nil
}

// rebase maps source-image landmarks into the size×size crop of region.
func rebase(points []models.Point, region image.Rectangle, size int) []models.Point {
	if len(points) == 0 {
		return nil
	}
	sx := float64(size) / float64(region.Dx())
	sy := float64(size) / float64(region.Dy())
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i] = models.Point{
			X: (p.X - float64(region.Min.X)) * sx,
			Y: (p.Y - float64(region.Min.Y)) * sy,
		}
	}
	return out
}
