package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"faceverify/internal/platform/config"
	"faceverify/internal/platform/kafka/producer"
	"faceverify/internal/platform/postgres"
	"faceverify/internal/platform/redis"
	"faceverify/internal/verification"
	vconfig "faceverify/internal/verification/config"
	"faceverify/internal/verification/handler"
	"faceverify/internal/verification/metrics"
	"faceverify/internal/verification/models"
	"faceverify/internal/verification/outbox"
	"faceverify/internal/verification/providers"
	"faceverify/internal/verification/providers/appearance"
	"faceverify/internal/verification/providers/embedding"
	"faceverify/internal/verification/providers/landmark"
	"faceverify/internal/verification/providers/remote"
	"faceverify/internal/verification/quality"
	"faceverify/internal/verification/risk"
	riskmemory "faceverify/internal/verification/risk/store/memory"
	riskredis "faceverify/internal/verification/risk/store/redis"
	"faceverify/internal/verification/store/memory"
	pgstore "faceverify/internal/verification/store/postgres"
	"faceverify/pkg/platform/circuit"
)

// app holds the wired engine plus the resources main must release.
type app struct {
	service *verification.Service
	relay   *outbox.Relay
	checks  map[string]handler.HealthCheck
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{checks: map[string]handler.HealthCheck{}}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	cal, err := loadCalibration(cfg)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	client, err := remote.New(cfg.ModelServer.URL,
		remote.WithAPIKey(cfg.ModelServer.APIKey),
		remote.WithTimeout(cfg.ModelServer.Timeout),
		remote.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	a.checks["model_server"] = client.Health

	assessor, err := quality.New(client,
		quality.WithConfig(cal.Quality),
		quality.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	provs, err := buildProviders(client, cal, log, m)
	if err != nil {
		return nil, err
	}

	recorder, err := a.buildRecorder(ctx, cfg, log, m)
	if err != nil {
		return nil, err
	}

	riskSource, err := a.buildRisk(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a.service, err = verification.New(assessor, recorder, provs,
		verification.WithCalibration(cal),
		verification.WithRiskSource(riskSource),
		verification.WithLogger(log),
		verification.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("wire verification service: %w", err)
	}

	ok = true
	return a, nil
}

func loadCalibration(cfg config.Server) (vconfig.Calibration, error) {
	cal, err := vconfig.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		return vconfig.Calibration{}, err
	}
	if cfg.RequestTimeout > 0 {
		cal.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.ProviderTimeout > 0 {
		cal.ProviderTimeout = cfg.ProviderTimeout
	}
	if err := cal.Validate(); err != nil {
		return vconfig.Calibration{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}

// buildProviders wires all ten metrics. Model-backed metrics get their own
// breaker so one unloaded model does not trip the others.
func buildProviders(client *remote.Client, cal vconfig.Calibration, log *slog.Logger, m *metrics.Metrics) ([]verification.MetricProvider, error) {
	var comparators []providers.Comparator
	for _, id := range []models.MetricID{models.MetricArcFace, models.MetricFaceNet, models.MetricSFace} {
		c, err := embedding.NewModelComparator(id, client.Embedder(string(id)))
		if err != nil {
			return nil, err
		}
		comparators = append(comparators, c)
	}

	cosine, err := embedding.NewCosineComparator(client.Embedder(cal.Metrics.CosineModel))
	if err != nil {
		return nil, err
	}
	euclidean, err := embedding.NewEuclideanComparator(client.Embedder(cal.Metrics.EuclideanModel), cal.Metrics.EuclideanScale)
	if err != nil {
		return nil, err
	}
	triplet, err := embedding.NewTripletComparator(client.Embedder(cal.Metrics.TripletModel), cal.Metrics.TripletAlpha, cal.Metrics.TripletSteepness)
	if err != nil {
		return nil, err
	}
	lm, err := landmark.NewComparator(cal.Metrics.LandmarkTolerance)
	if err != nil {
		return nil, err
	}
	comparators = append(comparators,
		cosine, euclidean,
		appearance.NewHistogramComparator(),
		lm,
		appearance.NewStructuralComparator(),
		appearance.NewTextureComparator(),
		triplet,
	)

	reg := providers.NewRegistry()
	for _, c := range comparators {
		opts := []providers.Option{providers.WithLogger(log), providers.WithMetrics(m)}
		if modelBacked(c.Metric()) {
			opts = append(opts, providers.WithBreaker(circuit.New(string(c.Metric()),
				circuit.WithFailureThreshold(5),
				circuit.WithCooldown(30*time.Second),
			)))
		}
		p, err := providers.New(c, opts...)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	if missing := reg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("metrics without a provider: %v", missing)
	}

	out := make([]verification.MetricProvider, 0, len(reg.All()))
	for _, p := range reg.All() {
		out = append(out, p)
	}
	return out, nil
}

func modelBacked(id models.MetricID) bool {
	switch id {
	case models.MetricHistogram, models.MetricLandmark, models.MetricStructural, models.MetricTexture:
		return false
	}
	return true
}

// buildRecorder selects the Postgres store when a database is configured and
// starts the outbox relay when brokers are configured too.
func (a *app) buildRecorder(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics) (verification.Recorder, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db == nil {
		log.Warn("DATABASE_URL not set, verification results are kept in memory")
		return memory.New(), nil
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	a.checks["postgres"] = db.PingContext

	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, results are stored without outbox events")
		return pgstore.New(db, pgstore.WithoutOutbox()), nil
	}

	pool, err := postgres.OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	prod, err := producer.New(cfg.Kafka.Brokers,
		producer.WithClientID("faceverify"),
		producer.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, prod.Close)
	a.checks["kafka"] = prod.Ping

	if err := prod.EnsureTopic(ctx, cfg.Kafka.ResultsTopic, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
		return nil, err
	}

	a.relay, err = outbox.New(pool, prod, cfg.Kafka.ResultsTopic,
		outbox.WithInterval(cfg.Kafka.OutboxInterval),
		outbox.WithBatchSize(cfg.Kafka.OutboxBatch),
		outbox.WithLogger(log),
		outbox.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	return pgstore.New(db), nil
}

func (a *app) buildRisk(ctx context.Context, cfg config.Server, log *slog.Logger) (*risk.Service, error) {
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	var store risk.Store = riskmemory.New()
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		a.checks["redis"] = rc.Health
		store = riskredis.New(rc.Client)
	} else {
		log.Warn("REDIS_URL not set, risk history is per-process")
	}
	return risk.New(store, risk.WithWindow(cfg.RiskWindow), risk.WithLogger(log))
}
