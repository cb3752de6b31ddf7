// Package scoring combines per-candidate history features into a single
// priority score. Lower scores are selected sooner.
package scoring

// NoHistoryGapDays is the gap assigned to candidates who never took part.
// Its magnitude makes the gap term dominate so they rank first.
const NoHistoryGapDays = 9999

// Default weights.
const (
	defaultTotalWeight = 4
	defaultRoleWeight  = 1
	defaultGapWeight   = 3
)

// Weights scale the three score terms.
type Weights struct {
	Total float64
	Role  float64
	Gap   float64
}

// DefaultWeights returns the published weights (4, 1, 3).
func DefaultWeights() Weights {
	return Weights{Total: defaultTotalWeight, Role: defaultRoleWeight, Gap: defaultGapWeight}
}

// Features are the inputs for one candidate.
type Features struct {
	TotalCount int
	RoleCount  int
	GapDays    int
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights replaces all weights. Ignored if any weight is negative.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		if w.Total >= 0 && w.Role >= 0 && w.Gap >= 0 {
			c.weights = w
		}
	}
}

// WithTotalWeight sets the weight of the window total count.
func WithTotalWeight(v float64) Option {
	return func(c *Calculator) {
		if v >= 0 {
			c.weights.Total = v
		}
	}
}

// WithRoleWeight sets the weight of the per-role window count.
func WithRoleWeight(v float64) Option {
	return func(c *Calculator) {
		if v >= 0 {
			c.weights.Role = v
		}
	}
}

// WithGapWeight sets the weight subtracted per gap day.
func WithGapWeight(v float64) Option {
	return func(c *Calculator) {
		if v >= 0 {
			c.weights.Gap = v
		}
	}
}

// Calculator scores features with fixed weights. It is immutable after
// construction and safe for concurrent use.
type Calculator struct {
	weights Weights
}

// NewCalculator creates a calculator with the default weights and options applied.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Weights returns the weights in use.
func (c *Calculator) Weights() Weights { return c.weights }

// Score computes W_total*total + W_role*role - W_gap*gap.
func (c *Calculator) Score(f Features) float64 {
	return c.weights.Total*float64(f.TotalCount) +
		c.weights.Role*float64(f.RoleCount) -
		c.weights.Gap*float64(f.GapDays)
}
