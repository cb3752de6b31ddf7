// Package service wires configuration, storage and the ranking engine
// into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/adapters/repository/pgstore"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/internal/domain/ranking"
	"github.com/okian/rota/internal/domain/scoring"
	"github.com/okian/rota/internal/domain/types"
	"github.com/okian/rota/internal/seed"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
)

// Ranking outcomes recorded to metrics.
const (
	outcomeOK             = "ok"
	outcomeInvalidRequest = "invalid_request"
	outcomeNotFound       = "not_found"
	outcomeInvalidDate    = "invalid_date"
	outcomeError          = "error"
)

// ErrNotStarted is returned by Priority before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the priority system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	engine *ranking.Engine
	closer func() error

	// Configuration
	storeKind    string
	dsn          string
	maxOpenConns int
	windowDays   int
	weights      scoring.Weights
	locale       string
	timezone     string
	seedEvents   int
	seedUsers    int

	// State
	started bool
	served  atomic.Int64
	failed  atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a ready store; Start will not open one.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithStoreKind selects the store Start opens: memory or postgres.
func WithStoreKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
	}
}

// WithDSN sets the postgres connection string and pool size.
func WithDSN(dsn string, maxOpenConns int) Option {
	return func(s *Service) {
		s.dsn = dsn
		if maxOpenConns > 0 {
			s.maxOpenConns = maxOpenConns
		}
	}
}

// WithWindowDays sets the trailing history window.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithWeights sets the score weights.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithLocale sets the username collation locale.
func WithLocale(locale string) Option {
	return func(s *Service) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithTimezone sets the zone used to turn decision times into days.
func WithTimezone(tz string) Option {
	return func(s *Service) {
		if tz != "" {
			s.timezone = tz
		}
	}
}

// WithSeed fills a memory store with generated history on Start.
func WithSeed(events, users int) Option {
	return func(s *Service) {
		if events > 0 && users > 0 {
			s.seedEvents = events
			s.seedUsers = users
		}
	}
}

// FromConfig maps a loaded Config onto options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithStoreKind(cfg.Store),
		WithDSN(cfg.DatabaseDSN, cfg.DBMaxOpenConns),
		WithWindowDays(cfg.WindowDays),
		WithWeights(scoring.Weights{Total: cfg.WeightTotal, Role: cfg.WeightRole, Gap: cfg.WeightGap}),
		WithLocale(cfg.CollationLocale),
		WithTimezone(cfg.Timezone),
		WithSeed(cfg.SeedEvents, cfg.SeedUsers),
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeKind:    config.StoreMemory,
		maxOpenConns: 10,
		windowDays:   ranking.DefaultWindowDays,
		weights:      scoring.DefaultWeights(),
		locale:       "ja",
		timezone:     "Asia/Tokyo",
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and builds the engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", s.timezone, err)
	}

	if s.store == nil {
		if err := s.openStore(ctx); err != nil {
			return err
		}
	}

	s.engine = ranking.New(s.store,
		ranking.WithWindowDays(s.windowDays),
		ranking.WithCalculator(scoring.NewCalculator(scoring.WithWeights(s.weights))),
		ranking.WithLocale(s.locale),
		ranking.WithLocation(loc),
		ranking.WithLogger(s.logger.Named("ranking")),
	)

	s.started = true
	s.logger.Info(ctx, "priority service started",
		logger.String("store", s.storeKind),
		logger.Int("windowDays", s.windowDays),
		logger.Float64("weightTotal", s.weights.Total),
		logger.Float64("weightRole", s.weights.Role),
		logger.Float64("weightGap", s.weights.Gap),
		logger.String("locale", s.locale),
		logger.String("timezone", s.timezone),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	switch s.storeKind {
	case config.StorePostgres:
		pg, err := pgstore.Open(ctx, s.dsn, pgstore.WithMaxOpenConns(s.maxOpenConns))
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		s.store = pg
		s.closer = pg.Close
		s.logger.Info(ctx, "using postgres store", logger.Int("maxOpenConns", s.maxOpenConns))
	case config.StoreMemory:
		mem := repository.NewInMemoryStore()
		s.store = mem
		s.logger.Info(ctx, "using in-memory store")
		if s.seedEvents > 0 {
			ds := seed.Generate(seed.Config{Events: s.seedEvents, Users: s.seedUsers, Seed: uint64(time.Now().UnixNano())})
			if err := seed.Write(ctx, mem, ds, s.logger); err != nil {
				return fmt.Errorf("seed memory store: %w", err)
			}
			for _, id := range ds.Upcoming {
				s.logger.Info(ctx, "seeded upcoming event", logger.String("event_id", id.String()))
			}
		}
	default:
		return fmt.Errorf("unknown store kind %q", s.storeKind)
	}
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping priority service...")
	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
		}
		s.closer = nil
		s.store = nil
	}
	s.engine = nil
	s.started = false
	s.logger.Info(context.Background(), "priority service stopped")
}

// Priority computes both priority lists for one event.
func (s *Service) Priority(ctx context.Context, eventID uuid.UUID) (*types.Result, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil, ErrNotStarted
	}

	start := time.Now()
	res, err := engine.Compute(ctx, eventID)
	outcome := classify(err)
	metrics.RecordRanking(outcome, metrics.Since(start))

	if err != nil {
		// data source failures are logged by the caller with request context
		s.failed.Add(1)
		return nil, err
	}
	s.served.Add(1)
	return res, nil
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ranking.ErrInvalidRequest):
		return outcomeInvalidRequest
	case errors.Is(err, ranking.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ranking.ErrInvalidDate):
		return outcomeInvalidDate
	default:
		return outcomeError
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"store":      s.storeKind,
		"windowDays": s.windowDays,
		"weights": map[string]float64{
			"total": s.weights.Total,
			"role":  s.weights.Role,
			"gap":   s.weights.Gap,
		},
		"locale":   s.locale,
		"timezone": s.timezone,
		"served":   s.served.Load(),
		"failed":   s.failed.Load(),
	}

	if mem, ok := s.store.(*repository.InMemoryStore); ok && s.started {
		events, applications, confirmations := mem.Count()
		stats["events"] = events
		stats["applications"] = applications
		stats["confirmations"] = confirmations
	}

	return stats
}
