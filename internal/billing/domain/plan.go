package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Plan identifiers.
const (
	PlanPro  = "pro"
	PlanFree = "free"
)

// Feature names granted by plans.
const (
	FeatureAssignments = "assignments"
	FeatureCalendar    = "calendar"
	FeatureExports     = "exports"
	FeatureAIPlanner   = "ai-planner"
)

// UnlimitedAssignments is the sentinel limit for plans without a monthly cap.
const UnlimitedAssignments = -1

// Plan describes a purchasable (or fallback) tier.
type Plan struct {
	ID              string
	Name            string
	Price           decimal.Decimal
	Currency        string
	TrialDays       int
	AssignmentLimit int
	Features        []string
}

// TrialDuration returns the trial window length.
func (p Plan) TrialDuration() time.Duration {
	return time.Duration(p.TrialDays) * 24 * time.Hour
}

// IsPaid reports whether the plan has a non-zero price.
func (p Plan) IsPaid() bool {
	return p.Price.IsPositive()
}

// HasFeature reports whether the plan grants the named feature.
func (p Plan) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Catalog is a static registry of plans.
type Catalog struct {
	plans       map[string]Plan
	defaultPlan string
}

// NewCatalog creates a catalog. The default plan must be one of plans.
func NewCatalog(defaultPlan string, plans ...Plan) *Catalog {
	c := &Catalog{
		plans:       make(map[string]Plan, len(plans)),
		defaultPlan: defaultPlan,
	}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	return c
}

// DefaultCatalog returns the built-in plans: a single paid plan with a 14-day
// trial and the free fallback tier.
func DefaultCatalog() *Catalog {
	return NewCatalog(PlanPro,
		Plan{
			ID:              PlanPro,
			Name:            "Pro",
			Price:           decimal.RequireFromString("9.99"),
			Currency:        "USD",
			TrialDays:       14,
			AssignmentLimit: UnlimitedAssignments,
			Features:        []string{FeatureAssignments, FeatureCalendar, FeatureExports, FeatureAIPlanner},
		},
		Plan{
			ID:              PlanFree,
			Name:            "Free",
			Price:           decimal.Zero,
			Currency:        "USD",
			TrialDays:       0,
			AssignmentLimit: 5,
			Features:        []string{FeatureAssignments},
		},
	)
}

// Lookup returns the plan with the given ID.
func (c *Catalog) Lookup(id string) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Default returns the plan new users start their trial on.
func (c *Catalog) Default() Plan {
	return c.plans[c.defaultPlan]
}

// Free returns the fallback tier used once paid access lapses.
// Falls back to a zero-limit plan if the catalog has none.
func (c *Catalog) Free() Plan {
	if p, ok := c.plans[PlanFree]; ok {
		return p
	}
	return Plan{ID: PlanFree, Name: "Free", Price: decimal.Zero}
}

// Plans returns all plans sorted by ID.
func (c *Catalog) Plans() []Plan {
	plans := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans
}
