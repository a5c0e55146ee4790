package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"faceverify/internal/verification/models"
	"faceverify/pkg/platform/sentinel"
	txcontext "faceverify/pkg/platform/tx"
)

const (
	AggregateType = "verification_result"
	EventRecorded = "verification.recorded"
)

// Store persists verification results in PostgreSQL. Each record is written
// together with an outbox row in one transaction; the outbox relay publishes
// it to Kafka afterwards.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	outbox bool
}

type Option func(*Store)

// WithoutOutbox stops Record from writing outbox rows. Use it when no relay
// drains the outbox table.
func WithoutOutbox() Option {
	return func(s *Store) {
		s.outbox = false
	}
}

// New creates a PostgreSQL result store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now, outbox: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const insertResult = `
	INSERT INTO verification_results (
		id, created_at, supersedes,
		arcface_score, facenet_score, sface_score,
		cosine_distance, cosine_score, euclidean_distance, euclidean_score,
		histogram_score, landmark_score, structural_score, texture_score, triplet_score,
		ensemble_score, agreement_count, available_metrics, adaptive_threshold,
		required_score, confidence, passed, reason, failed_image,
		selfie_quality, document_quality, device_info, ip_address
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
`

const insertOutbox = `
	INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

const selectResult = `
	SELECT
		id, created_at, supersedes,
		arcface_score, facenet_score, sface_score,
		cosine_distance, cosine_score, euclidean_distance, euclidean_score,
		histogram_score, landmark_score, structural_score, texture_score, triplet_score,
		ensemble_score, agreement_count, available_metrics, adaptive_threshold,
		required_score, confidence, passed, reason, failed_image,
		selfie_quality, document_quality, device_info, ip_address
	FROM verification_results
	WHERE id = $1
`

// Record inserts result and, unless disabled, its outbox event. A zero ID is
// assigned. It joins a transaction already carried by ctx.
func (s *Store) Record(ctx context.Context, result *models.VerificationResult) (uuid.UUID, error) {
	if result == nil {
		return uuid.Nil, errors.New("result is required")
	}
	r := result.Clone()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	var payload []byte
	if s.outbox {
		var err error
		if payload, err = json.Marshal(r.View()); err != nil {
			return uuid.Nil, fmt.Errorf("marshal result payload: %w", err)
		}
	}

	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertResult, resultArgs(r)...); err != nil {
			return fmt.Errorf("insert verification result: %w", translate(err))
		}
		if !s.outbox {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertOutbox,
			uuid.New(),
			AggregateType,
			r.ID.String(),
			EventRecorded,
			payload,
			s.now(),
		); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationResult, error) {
	var (
		r                              models.VerificationResult
		supersedes                     uuid.NullUUID
		confidence                     string
		reason, failedImage            sql.NullString
		deviceInfo, ipAddress          sql.NullString
		ensemble, threshold            sql.NullFloat64
		selfieQuality, documentQuality sql.NullFloat64
		scores                         [12]sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, selectResult, id).Scan(
		&r.ID, &r.CreatedAt, &supersedes,
		&scores[0], &scores[1], &scores[2],
		&scores[3], &scores[4], &scores[5], &scores[6],
		&scores[7], &scores[8], &scores[9], &scores[10], &scores[11],
		&ensemble, &r.AgreementCount, &r.AvailableMetrics, &threshold,
		&r.RequiredScore, &confidence, &r.Passed, &reason, &failedImage,
		&selfieQuality, &documentQuality, &deviceInfo, &ipAddress,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification result by id: %w", err)
	}

	if supersedes.Valid {
		r.Supersedes = &supersedes.UUID
	}
	for i, dst := range []**float64{
		&r.ArcFaceScore, &r.FaceNetScore, &r.SFaceScore,
		&r.CosineDistance, &r.CosineScore, &r.EuclideanDistance, &r.EuclideanScore,
		&r.HistogramScore, &r.LandmarkScore, &r.StructuralScore, &r.TextureScore, &r.TripletScore,
	} {
		*dst = fromNullFloat(scores[i])
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.EnsembleScore = fromNullFloat(ensemble)
	r.AdaptiveThreshold = fromNullFloat(threshold)
	r.SelfieQuality = fromNullFloat(selfieQuality)
	r.DocumentQuality = fromNullFloat(documentQuality)
	r.Confidence = models.Confidence(confidence)
	r.Reason = models.FailureReason(reason.String)
	r.FailedImage = models.ImageRole(failedImage.String)
	r.DeviceInfo = fromNullString(deviceInfo)
	r.IPAddress = fromNullString(ipAddress)
	return &r, nil
}

func resultArgs(r *models.VerificationResult) []any {
	var supersedes uuid.NullUUID
	if r.Supersedes != nil {
		supersedes = uuid.NullUUID{UUID: *r.Supersedes, Valid: true}
	}
	return []any{
		r.ID, r.CreatedAt, supersedes,
		toNullFloat(r.ArcFaceScore), toNullFloat(r.FaceNetScore), toNullFloat(r.SFaceScore),
		toNullFloat(r.CosineDistance), toNullFloat(r.CosineScore),
		toNullFloat(r.EuclideanDistance), toNullFloat(r.EuclideanScore),
		toNullFloat(r.HistogramScore), toNullFloat(r.LandmarkScore), toNullFloat(r.StructuralScore),
		toNullFloat(r.TextureScore), toNullFloat(r.TripletScore),
		toNullFloat(r.EnsembleScore), r.AgreementCount, r.AvailableMetrics, toNullFloat(r.AdaptiveThreshold),
		r.RequiredScore, string(r.Confidence), r.Passed,
		toNullString(string(r.Reason)), toNullString(string(r.FailedImage)),
		toNullFloat(r.SelfieQuality), toNullFloat(r.DocumentQuality),
		toNullStringPtr(r.DeviceInfo), toNullStringPtr(r.IPAddress),
	}
}

// translate maps constraint violations onto sentinel errors.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Message)
	case "23503": // foreign_key_violation on supersedes
		return fmt.Errorf("superseded result: %w", sentinel.ErrNotFound)
	}
	return err
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
