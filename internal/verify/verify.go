// Package verify checks priority lists served by a running rota server.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/scoring"
	"github.com/okian/rota/internal/domain/types"
	"github.com/okian/rota/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults for Config.
const (
	DefaultWorkers = 4
	DefaultTimeout = 10 * time.Second
)

// Config holds the verification run parameters.
type Config struct {
	BaseURL  string
	EventIDs []string
	Workers  int
	Timeout  time.Duration
	// RPS caps request rate against the server; zero means unlimited.
	RPS float64
}

// Issue is one violated property.
type Issue struct {
	EventID string
	Role    model.Role
	Message string
}

func (i Issue) String() string {
	if i.Role == "" {
		return fmt.Sprintf("%s: %s", i.EventID, i.Message)
	}
	return fmt.Sprintf("%s/%s: %s", i.EventID, i.Role, i.Message)
}

// Report summarizes a run.
type Report struct {
	Checked    int
	Candidates int
	Issues     []Issue
	Duration   time.Duration
}

// OK reports whether no issue was found.
func (r *Report) OK() bool { return len(r.Issues) == 0 }

// Run fetches every event's priority lists concurrently and checks them.
// Transport failures abort the run; property violations are collected.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Report, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	client := &http.Client{Timeout: cfg.Timeout}
	start := time.Now()

	if err := checkHealth(ctx, client, base); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, id := range cfg.EventIDs {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return fmt.Errorf("event %s: %w", id, err)
			}
			res, err := fetch(gctx, client, base, id)
			if err != nil {
				return fmt.Errorf("event %s: %w", id, err)
			}
			issues := Check(res)

			mu.Lock()
			report.Checked++
			report.Candidates += len(res.Driver) + len(res.Attendant)
			report.Issues = append(report.Issues, issues...)
			mu.Unlock()

			if log != nil {
				log.Info(gctx, "verified event",
					logger.String("event_id", id),
					logger.Int("drivers", len(res.Driver)),
					logger.Int("attendants", len(res.Attendant)),
					logger.Int("issues", len(issues)),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

func checkHealth(ctx context.Context, client *http.Client, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, base, eventID string) (*types.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/events/"+eventID+"/priority", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var res types.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Check validates the ordering properties of one result.
func Check(res *types.Result) []Issue {
	var issues []Issue
	id := res.EventID.String()
	eventDate, dateErr := time.Parse(types.DateLayout, res.EventDate)
	if dateErr != nil {
		issues = append(issues, Issue{EventID: id, Message: fmt.Sprintf("bad event_date %q", res.EventDate)})
	}

	for _, role := range model.Roles() {
		add := func(format string, args ...any) {
			issues = append(issues, Issue{EventID: id, Role: role, Message: fmt.Sprintf(format, args...)})
		}
		list := res.List(role)
		seen := make(map[string]struct{}, len(list))

		for i, c := range list {
			if c.Rank != i+1 {
				add("position %d has rank %d", i+1, c.Rank)
			}
			if c.Role != role {
				add("%s listed under %s has role %s", c.Username, role, c.Role)
			}
			if _, dup := seen[c.Username]; dup {
				add("%s appears twice", c.Username)
			}
			seen[c.Username] = struct{}{}
			if c.RoleCount > c.Times {
				add("%s role count %d exceeds total %d", c.Username, c.RoleCount, c.Times)
			}

			switch {
			case c.LastAt == nil && c.GapDays != scoring.NoHistoryGapDays:
				add("%s has no last_at but gap %d", c.Username, c.GapDays)
			case c.LastAt != nil && c.GapDays == scoring.NoHistoryGapDays:
				add("%s has last_at %s but the no-history gap", c.Username, *c.LastAt)
			case c.LastAt != nil && dateErr == nil:
				last, err := time.Parse(types.DateLayout, *c.LastAt)
				if err != nil {
					add("%s has bad last_at %q", c.Username, *c.LastAt)
				} else if !last.Before(eventDate) {
					add("%s last_at %s is not before the event", c.Username, *c.LastAt)
				} else if d := model.DaysBetween(last, eventDate); d != c.GapDays {
					add("%s gap %d does not match last_at (%d days)", c.Username, c.GapDays, d)
				}
			}

			if i > 0 && !ordered(list[i-1], c) {
				add("%s is ranked after %s out of order", c.Username, list[i-1].Username)
			}
		}
	}
	return issues
}

// ordered reports whether a may precede b, ignoring the username tie-break.
func ordered(a, b types.RankedCandidate) bool {
	switch {
	case a.Score != b.Score:
		return a.Score < b.Score
	case a.RoleCount != b.RoleCount:
		return a.RoleCount < b.RoleCount
	case a.Times != b.Times:
		return a.Times < b.Times
	default:
		return a.GapDays >= b.GapDays
	}
}
