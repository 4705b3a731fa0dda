// Package plan defines the entitlement tiers and their limits.
package plan

// Plan is a billing tier controlling feature access and usage ceilings.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanSolo   Plan = "solo"
	PlanPro    Plan = "pro"
	PlanGrowth Plan = "growth"
)

// Feature identifies a single entry in Limits. Boolean features gate access,
// numeric features carry a ceiling (nil = unlimited).
type Feature string

const (
	FeatureWorkspaces          Feature = "workspaces"
	FeatureProfiles            Feature = "profiles"
	FeatureGenerationsPerMonth Feature = "generationsPerMonth"
	FeatureAnalytics           Feature = "hasAnalytics"
	FeatureExperiments         Feature = "hasExperiments"
	FeatureScheduling          Feature = "hasScheduling"
)

// Limits holds the entitlements of a single plan.
type Limits struct {
	Workspaces          int  `json:"workspaces"`
	Profiles            int  `json:"profiles"`
	GenerationsPerMonth *int `json:"generations_per_month"` // nil = unlimited
	HasAnalytics        bool `json:"has_analytics"`
	HasExperiments      bool `json:"has_experiments"`
	HasScheduling       bool `json:"has_scheduling"`
}

var limitsByPlan = map[Plan]Limits{
	PlanFree: {
		Workspaces:          1,
		Profiles:            1,
		GenerationsPerMonth: intPtr(10),
	},
	PlanSolo: {
		Workspaces:          1,
		Profiles:            1,
		GenerationsPerMonth: intPtr(30),
	},
	PlanPro: {
		Workspaces:          3,
		Profiles:            3,
		GenerationsPerMonth: intPtr(200),
		HasAnalytics:        true,
	},
	PlanGrowth: {
		Workspaces:          10,
		Profiles:            10,
		GenerationsPerMonth: nil,
		HasAnalytics:        true,
		HasExperiments:      true,
		HasScheduling:       true,
	},
}

// LimitsFor returns the limits for a plan. It is total: unknown or empty
// plan values resolve to the free tier.
func LimitsFor(p Plan) Limits {
	if l, ok := limitsByPlan[p]; ok {
		return l
	}
	return limitsByPlan[PlanFree]
}

// Parse normalizes a raw plan string, falling back to free.
func Parse(raw string) Plan {
	p := Plan(raw)
	if _, ok := limitsByPlan[p]; ok {
		return p
	}
	return PlanFree
}

// Valid reports whether a feature key is one of the known entries.
func (f Feature) Valid() bool {
	switch f {
	case FeatureWorkspaces, FeatureProfiles, FeatureGenerationsPerMonth,
		FeatureAnalytics, FeatureExperiments, FeatureScheduling:
		return true
	}
	return false
}

// FeatureValue resolves a feature against the limits. Boolean features
// return (value, true, nil); numeric features return (false, false, ceiling)
// where a nil ceiling means unlimited.
func (l Limits) FeatureValue(f Feature) (enabled bool, isBool bool, ceiling *int) {
	switch f {
	case FeatureAnalytics:
		return l.HasAnalytics, true, nil
	case FeatureExperiments:
		return l.HasExperiments, true, nil
	case FeatureScheduling:
		return l.HasScheduling, true, nil
	case FeatureWorkspaces:
		return false, false, intPtr(l.Workspaces)
	case FeatureProfiles:
		return false, false, intPtr(l.Profiles)
	case FeatureGenerationsPerMonth:
		return false, false, l.GenerationsPerMonth
	}
	return false, true, nil
}

func intPtr(v int) *int { return &v }
