package ranking

import (
	"context"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/types"
	"github.com/okian/rota/pkg/logger"
)

// Tracer receives the intermediate candidate/score table of each computation.
type Tracer interface {
	Trace(ctx context.Context, eventID uuid.UUID, rows []types.TraceRow)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ctx context.Context, eventID uuid.UUID, rows []types.TraceRow)

// Trace implements Tracer.
func (f TracerFunc) Trace(ctx context.Context, eventID uuid.UUID, rows []types.TraceRow) {
	f(ctx, eventID, rows)
}

// LogTracer writes each row at debug level.
type LogTracer struct {
	Log logger.Logger
}

// Trace implements Tracer.
func (t LogTracer) Trace(ctx context.Context, eventID uuid.UUID, rows []types.TraceRow) {
	if t.Log == nil || !t.Log.Enabled(ctx, logger.LevelDebug) {
		return
	}
	for _, r := range rows {
		t.Log.Debug(ctx, "candidate",
			logger.String("event_id", eventID.String()),
			logger.String("username", r.Username),
			logger.String("role", string(r.Role)),
			logger.Bool("confirmed", r.Confirmed),
			logger.Int("total", r.TotalCount),
			logger.Int("role_count", r.RoleCount),
			logger.Int("gap_days", r.GapDays),
			logger.String("last_at", r.LastAt),
			logger.Float64("score", r.Score),
			logger.Int("rank", r.Rank),
		)
	}
}
