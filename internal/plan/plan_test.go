package plan

import "testing"

func TestLimitsForKnownPlans(t *testing.T) {
	tests := []struct {
		plan        Plan
		workspaces  int
		profiles    int
		generations *int
		analytics   bool
		experiments bool
		scheduling  bool
	}{
		{PlanFree, 1, 1, intPtr(10), false, false, false},
		{PlanSolo, 1, 1, intPtr(30), false, false, false},
		{PlanPro, 3, 3, intPtr(200), true, false, false},
		{PlanGrowth, 10, 10, nil, true, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			l := LimitsFor(tt.plan)
			if l.Workspaces != tt.workspaces {
				t.Fatalf("workspaces = %d, want %d", l.Workspaces, tt.workspaces)
			}
			if l.Profiles != tt.profiles {
				t.Fatalf("profiles = %d, want %d", l.Profiles, tt.profiles)
			}
			if (l.GenerationsPerMonth == nil) != (tt.generations == nil) {
				t.Fatalf("generations nil mismatch: %v vs %v", l.GenerationsPerMonth, tt.generations)
			}
			if l.GenerationsPerMonth != nil && *l.GenerationsPerMonth != *tt.generations {
				t.Fatalf("generations = %d, want %d", *l.GenerationsPerMonth, *tt.generations)
			}
			if l.HasAnalytics != tt.analytics || l.HasExperiments != tt.experiments || l.HasScheduling != tt.scheduling {
				t.Fatalf("feature flags = %v/%v/%v", l.HasAnalytics, l.HasExperiments, l.HasScheduling)
			}
		})
	}
}

func TestLimitsForUnknownPlanFallsBackToFree(t *testing.T) {
	for _, raw := range []string{"", "enterprise", "FREE", "growth "} {
		l := LimitsFor(Plan(raw))
		free := LimitsFor(PlanFree)
		if l.Workspaces != free.Workspaces || l.Profiles != free.Profiles {
			t.Fatalf("LimitsFor(%q) did not fall back to free", raw)
		}
		if l.GenerationsPerMonth == nil || *l.GenerationsPerMonth != 10 {
			t.Fatalf("LimitsFor(%q).GenerationsPerMonth = %v, want 10", raw, l.GenerationsPerMonth)
		}
	}
}

func TestParse(t *testing.T) {
	if got := Parse("pro"); got != PlanPro {
		t.Fatalf("Parse(pro) = %s", got)
	}
	if got := Parse("business"); got != PlanFree {
		t.Fatalf("Parse(business) = %s, want free", got)
	}
}

func TestFeatureValue(t *testing.T) {
	growth := LimitsFor(PlanGrowth)

	enabled, isBool, _ := growth.FeatureValue(FeatureAnalytics)
	if !isBool || !enabled {
		t.Fatalf("growth analytics = %v (isBool=%v)", enabled, isBool)
	}

	_, isBool, ceiling := growth.FeatureValue(FeatureGenerationsPerMonth)
	if isBool || ceiling != nil {
		t.Fatalf("growth generations ceiling = %v, want unlimited", ceiling)
	}

	solo := LimitsFor(PlanSolo)
	_, _, ceiling = solo.FeatureValue(FeatureGenerationsPerMonth)
	if ceiling == nil || *ceiling != 30 {
		t.Fatalf("solo generations ceiling = %v, want 30", ceiling)
	}
}
