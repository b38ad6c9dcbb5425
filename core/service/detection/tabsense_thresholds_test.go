package detection

import (
	"math"
	"testing"

	"tabsense_server/core/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewThresholds(t *testing.T) {
	tests := []struct {
		name       string
		periodDays float64
		wantErr    bool
	}{
		{"one week", 7, false},
		{"single day", 1, false},
		{"half day floor", 0.5, false},
		{"below floor", 0.4, true},
		{"zero", 0, true},
		{"negative", -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholds(tt.periodDays)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewThresholds(%v) error = %v, wantErr %v", tt.periodDays, err, tt.wantErr)
			}
		})
	}
}

func TestMinVisitsForBehavior_Scaling(t *testing.T) {
	tests := []struct {
		periodDays float64
		tier       BehaviorTier
		want       int
	}{
		{7, TierCompulsive, 50},
		{1, TierCompulsive, 7},
		{30, TierCompulsive, 214},
		{7, TierFrequent, 20},
		{7, TierRegular, 10},
		{1, TierRegular, 1},
		{14, TierFrequent, 40},
	}

	for _, tt := range tests {
		th, err := NewThresholds(tt.periodDays)
		if err != nil {
			t.Fatalf("NewThresholds(%v): %v", tt.periodDays, err)
		}
		got, err := th.MinVisitsForBehavior(tt.tier)
		if err != nil {
			t.Fatalf("MinVisitsForBehavior(%v): %v", tt.tier, err)
		}
		if got != tt.want {
			t.Errorf("period=%v tier=%v: got %d, want %d", tt.periodDays, tt.tier, got, tt.want)
		}
	}
}

func TestMinVisitsForBehavior_UnknownTier(t *testing.T) {
	th, _ := NewThresholds(7)
	if _, err := th.MinVisitsForBehavior(BehaviorTier("spurious")); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestClassifyBehaviorByVisits_Monotonic(t *testing.T) {
	th, _ := NewThresholds(7)

	prev := 0
	for visits := 0; visits <= 120; visits++ {
		bt, err := th.ClassifyBehaviorByVisits(visits)
		if err != nil {
			t.Fatalf("visits=%d: %v", visits, err)
		}
		sev := bt.Severity()
		if sev < prev {
			t.Fatalf("severity decreased at visits=%d: %d -> %d", visits, prev, sev)
		}
		prev = sev
	}
}

func TestClassifyBehaviorByVisits_Boundaries(t *testing.T) {
	th, _ := NewThresholds(7)

	tests := []struct {
		visits int
		want   domain.BehaviorType
	}{
		{0, domain.BehaviorPeriodicRevisit},
		{9, domain.BehaviorPeriodicRevisit},
		{10, domain.BehaviorRegularReference},
		{19, domain.BehaviorRegularReference},
		{20, domain.BehaviorFrequentMonitoring},
		{49, domain.BehaviorFrequentMonitoring},
		{50, domain.BehaviorCompulsiveChecking},
		{500, domain.BehaviorCompulsiveChecking},
	}

	for _, tt := range tests {
		got, err := th.ClassifyBehaviorByVisits(tt.visits)
		if err != nil {
			t.Fatalf("visits=%d: %v", tt.visits, err)
		}
		if got != tt.want {
			t.Errorf("visits=%d: got %v, want %v", tt.visits, got, tt.want)
		}
	}

	if _, err := th.ClassifyBehaviorByVisits(-1); err == nil {
		t.Error("expected error for negative visit count")
	}
}

func TestClassifyBehaviorByFrequency(t *testing.T) {
	th, _ := NewThresholds(7)

	tests := []struct {
		name  string
		hours *float64
		want  domain.BehaviorType
	}{
		{"nil hours", nil, domain.BehaviorPeriodicRevisit},
		{"under half hour", floatPtr(0.25), domain.BehaviorCompulsiveChecking},
		{"exactly half hour", floatPtr(0.5), domain.BehaviorFrequentMonitoring},
		{"ninety minutes", floatPtr(1.5), domain.BehaviorFrequentMonitoring},
		{"three hours", floatPtr(3), domain.BehaviorRegularReference},
		{"daily", floatPtr(24), domain.BehaviorPeriodicRevisit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := th.ClassifyBehaviorByFrequency(tt.hours)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := th.ClassifyBehaviorByFrequency(floatPtr(-1)); err == nil {
		t.Error("expected error for negative hours")
	}
}

func TestClassifyEngagementType(t *testing.T) {
	th, _ := NewThresholds(7)

	tests := []struct {
		name    string
		seconds *float64
		want    domain.EngagementType
	}{
		{"nil", nil, domain.EngagementQuickGlance},
		{"three seconds", floatPtr(3), domain.EngagementQuickGlance},
		{"ten seconds", floatPtr(10), domain.EngagementBriefCheck},
		{"forty seconds", floatPtr(40), domain.EngagementScan},
		{"two minutes", floatPtr(120), domain.EngagementShallowWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := th.ClassifyEngagementType(tt.seconds)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := th.ClassifyEngagementType(floatPtr(-1)); err == nil {
		t.Error("expected error for negative seconds")
	}
}

func TestQualifiesAsSerialOpener(t *testing.T) {
	// The qualification rate is independent of the period the calculator
	// was built with.
	for _, periodDays := range []float64{1, 7, 30} {
		th, _ := NewThresholds(periodDays)

		tests := []struct {
			visits int
			days   float64
			want   bool
		}{
			{3, 7, false}, // 0.4286 < 0.43
			{4, 7, true},  // 0.5714
			{13, 30, true},
			{12, 30, false},
			{1, 1, true},
		}
		for _, tt := range tests {
			got, err := th.QualifiesAsSerialOpener(tt.visits, tt.days)
			if err != nil {
				t.Fatalf("period=%v visits=%d days=%v: %v", periodDays, tt.visits, tt.days, err)
			}
			if got != tt.want {
				t.Errorf("period=%v visits=%d days=%v: got %v, want %v", periodDays, tt.visits, tt.days, got, tt.want)
			}
		}

		if _, err := th.QualifiesAsSerialOpener(3, 0); err == nil {
			t.Error("expected error for zero days")
		}
		if _, err := th.QualifiesAsSerialOpener(-1, 7); err == nil {
			t.Error("expected error for negative visits")
		}
	}
}

func TestMinSerialOpenerVisits_Floor(t *testing.T) {
	th, _ := NewThresholds(1)
	if got := th.MinSerialOpenerVisits(); got < 2 {
		t.Errorf("floor violated: got %d", got)
	}

	th7, _ := NewThresholds(7)
	if got := th7.MinSerialOpenerVisits(); got != 3 {
		t.Errorf("period=7: got %d, want 3", got)
	}
}

func TestMaxSerialOpenerEngagementSeconds(t *testing.T) {
	th, _ := NewThresholds(7)
	if got := th.MaxSerialOpenerEngagementSeconds(); math.Abs(got-120) > 1e-9 {
		t.Errorf("period=7: got %v, want 120", got)
	}

	th14, _ := NewThresholds(14)
	if got := th14.MaxSerialOpenerEngagementSeconds(); math.Abs(got-240) > 1e-9 {
		t.Errorf("period=14: got %v, want 240", got)
	}
}
