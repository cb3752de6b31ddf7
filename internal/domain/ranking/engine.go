// Package ranking turns the applicants of one event into per-role priority
// lists ordered by recent participation.
package ranking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/scoring"
	"github.com/okian/rota/internal/domain/types"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultWindowDays is the trailing window length.
const DefaultWindowDays = 30

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWindowDays sets the trailing window length in days.
func WithWindowDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// WithCalculator sets the score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calc = c
		}
	}
}

// WithLocale sets the BCP-47 locale used to collate usernames.
func WithLocale(locale string) Option {
	return func(e *Engine) {
		if locale != "" {
			e.locale = language.Make(locale)
		}
	}
}

// WithLocation sets the zone used to turn instants into calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTracer sets the receiver of the candidate/score table.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine computes priority lists. It holds only immutable configuration,
// so Compute may be called concurrently.
type Engine struct {
	src        repository.Store
	windowDays int
	calc       *scoring.Calculator
	locale     language.Tag
	loc        *time.Location
	resolver   *model.DateResolver
	now        func() time.Time
	tracer     Tracer
	log        logger.Logger
}

// New creates an engine reading from src.
func New(src repository.Store, opts ...Option) *Engine {
	e := &Engine{
		src:        src,
		windowDays: DefaultWindowDays,
		calc:       scoring.NewCalculator(),
		locale:     language.Japanese,
		loc:        time.UTC,
		now:        time.Now,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = model.NewDateResolver(e.loc)
	if e.tracer == nil {
		e.tracer = LogTracer{Log: e.log}
	}
	return e
}

// WindowDays returns the configured window length.
func (e *Engine) WindowDays() int { return e.windowDays }

// Compute ranks the candidates of one event. Any read failure aborts the
// whole computation; there is no partial result.
func (e *Engine) Compute(ctx context.Context, eventID uuid.UUID) (*types.Result, error) {
	if eventID == uuid.Nil {
		return nil, newError(ErrInvalidRequest, StageEvent, eventID, nil)
	}

	start := time.Now()
	pool, err := LoadPool(ctx, e.src, e.resolver, e.now, eventID)
	metrics.RecordRankingStage(string(StagePool), metrics.Since(start))
	if err != nil {
		return nil, err
	}

	counts, lasts, err := e.history(ctx, pool)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(pool.Candidates))
	for _, c := range pool.Candidates {
		wc := counts[c.Username]
		last, found := lasts[c.Username]
		s := Scored{
			Candidate:  c,
			TotalCount: wc.Total,
			RoleCount:  wc.Role(c.Role),
			GapDays:    GapDays(last, found, pool.EventDate),
		}
		if found {
			s.LastAt = &last
		}
		s.Score = e.calc.Score(scoring.Features{
			TotalCount: s.TotalCount,
			RoleCount:  s.RoleCount,
			GapDays:    s.GapDays,
		})
		scored = append(scored, s)
	}

	// collators keep internal buffers; one per computation
	ranked := Rank(scored, collate.New(e.locale))

	res := types.NewResult(eventID, pool.EventDate, e.windowDays)
	var rows []types.TraceRow
	for _, role := range model.Roles() {
		list := ranked[role]
		metrics.RecordCandidates(string(role), len(list))
		for _, s := range list {
			rc := toRanked(s)
			switch role {
			case model.RoleDriver:
				res.Driver = append(res.Driver, rc)
			case model.RoleAttendant:
				res.Attendant = append(res.Attendant, rc)
			}
			rows = append(rows, toTraceRow(s))
		}
	}
	e.tracer.Trace(ctx, eventID, rows)

	e.log.Debug(ctx, "priority computed",
		logger.String("event_id", eventID.String()),
		logger.String("event_date", res.EventDate),
		logger.Int("drivers", len(res.Driver)),
		logger.Int("attendants", len(res.Attendant)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// history runs the window and last-participation reads concurrently. The
// group context cancels the sibling read when either fails.
func (e *Engine) history(ctx context.Context, pool Pool) (map[string]WindowCounts, map[string]time.Time, error) {
	usernames := pool.Usernames()
	if len(usernames) == 0 {
		return map[string]WindowCounts{}, map[string]time.Time{}, nil
	}

	var (
		counts map[string]WindowCounts
		lasts  map[string]time.Time
	)
	eventID := pool.Event.ID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() { metrics.RecordRankingStage(string(StageWindow), metrics.Since(start)) }()

		since := WindowStart(pool.EventDate, e.windowDays)
		recs, err := e.src.ListConfirmationsForUsers(gctx, usernames, pool.EventDate, &since)
		if err != nil {
			return newError(ErrDataSource, StageWindow, eventID, err)
		}
		metrics.RecordHistoryRecords(len(recs))
		counts = AggregateWindow(recs, eventID, pool.EventDate, e.windowDays, e.resolver)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { metrics.RecordRankingStage(string(StageLast), metrics.Since(start)) }()

		recs, err := e.src.ListConfirmationsForUsers(gctx, usernames, pool.EventDate, nil)
		if err != nil {
			return newError(ErrDataSource, StageLast, eventID, err)
		}
		metrics.RecordHistoryRecords(len(recs))
		lasts = ResolveLast(recs, eventID, pool.EventDate, e.resolver)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return counts, lasts, nil
}

func toRanked(s Scored) types.RankedCandidate {
	rc := types.RankedCandidate{
		Username:  s.Username,
		Role:      s.Role,
		AppliedAt: s.AppliedAt,
		Times:     s.TotalCount,
		RoleCount: s.RoleCount,
		GapDays:   s.GapDays,
		Score:     s.Score,
		Rank:      s.Rank,
	}
	if s.LastAt != nil {
		d := s.LastAt.Format(types.DateLayout)
		rc.LastAt = &d
	}
	return rc
}

func toTraceRow(s Scored) types.TraceRow {
	row := types.TraceRow{
		Username:   s.Username,
		Role:       s.Role,
		Confirmed:  s.Confirmed,
		TotalCount: s.TotalCount,
		RoleCount:  s.RoleCount,
		GapDays:    s.GapDays,
		Score:      s.Score,
		Rank:       s.Rank,
	}
	if s.LastAt != nil {
		row.LastAt = s.LastAt.Format(types.DateLayout)
	}
	return row
}
