package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pbmcore/adjudicator/internal/claim"
)

func baseRequest() claim.Request {
	return claim.Request{
		MemberID:                1,
		PharmacyID:              "PHR0001",
		NDC:                     "12345678901",
		QuantityDispensed:       decimal.NewFromInt(30),
		DaysSupply:              30,
		RefillNumber:            0,
		DateOfService:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		IngredientCostSubmitted: decimal.RequireFromString("45.99"),
		DispensingFeeSubmitted:  decimal.RequireFromString("2.50"),
	}
}

// TestAdjudicateApprovedPricing checks the pricing math for Scenarios A
// and C directly against the unexported price() helper, since the
// probabilistic reject gates in Adjudicate make the approved path
// otherwise non-deterministic without a seed search.
func TestAdjudicateApprovedPricing(t *testing.T) {
	tests := []struct {
		name           string
		ingredientCost string
		dispensingFee  string
		forceTier      int
		wantPatientPay string
		wantPlanPay    string
	}{
		{
			name:           "tier 1 copay",
			ingredientCost: "45.99",
			dispensingFee:  "2.50",
			forceTier:      1,
			wantPatientPay: "10",
			wantPlanPay:    "38.49",
		},
		{
			name:           "tier 4 coinsurance",
			ingredientCost: "500.00",
			dispensingFee:  "2.50",
			forceTier:      4,
			wantPatientPay: "150.75",
			wantPlanPay:    "351.75",
		},
		{
			// Cheap generic: tier-1 copay ($10) exceeds total_cost ($5),
			// so patient_pay must cap at total_cost to keep
			// patient_pay + plan_pay == total_cost (spec.md §3.2, §8.2).
			name:           "copay capped at total cost for cheap generic",
			ingredientCost: "3.00",
			dispensingFee:  "2.00",
			forceTier:      1,
			wantPatientPay: "5.00",
			wantPlanPay:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.IngredientCostSubmitted = decimal.RequireFromString(tt.ingredientCost)
			req.DispensingFeeSubmitted = decimal.RequireFromString(tt.dispensingFee)

			patientPay, planPay, _ := price(req, tt.forceTier)

			want := decimal.RequireFromString(tt.wantPatientPay)
			if !patientPay.Equal(want) {
				t.Errorf("patientPay = %s, want %s", patientPay, want)
			}
			wantPlan := decimal.RequireFromString(tt.wantPlanPay)
			if !planPay.Equal(wantPlan) {
				t.Errorf("planPay = %s, want %s", planPay, wantPlan)
			}
		})
	}
}

func TestAdjudicateQuantityLimitHardReject(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*claim.Request)
	}{
		{"quantity over 360", func(r *claim.Request) { r.QuantityDispensed = decimal.NewFromInt(400) }},
		{"days supply over 100", func(r *claim.Request) { r.DaysSupply = 120 }},
		{"days supply zero", func(r *claim.Request) { r.DaysSupply = 0 }},
		{"days supply negative", func(r *claim.Request) { r.DaysSupply = -5 }},
	}

	e := New(1, Delays{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mod(&req)

			got := e.Adjudicate(req)

			if got.Status != claim.StatusRejected {
				t.Fatalf("Status = %v, want rejected", got.Status)
			}
			if got.ResponseCode != codePlanLimits {
				t.Errorf("ResponseCode = %s, want %s", got.ResponseCode, codePlanLimits)
			}
			if !got.PatientPay.IsZero() || !got.PlanPay.IsZero() {
				t.Errorf("rejected claim must have zero pay, got patient=%s plan=%s", got.PatientPay, got.PlanPay)
			}
		})
	}
}

func TestAdjudicateMissingDataReject(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*claim.Request)
	}{
		{"empty pharmacy", func(r *claim.Request) { r.PharmacyID = "" }},
		{"short ndc", func(r *claim.Request) { r.NDC = "123" }},
		{"zero quantity", func(r *claim.Request) { r.QuantityDispensed = decimal.Zero }},
		{"zero member id", func(r *claim.Request) { r.MemberID = 0 }},
	}

	e := New(1, Delays{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mod(&req)

			got := e.Adjudicate(req)
			if got.Status != claim.StatusRejected {
				t.Fatalf("Status = %v, want rejected", got.Status)
			}
			if got.ResponseCode != codeMissingData {
				t.Errorf("ResponseCode = %s, want %s", got.ResponseCode, codeMissingData)
			}
		})
	}
}

func TestAdjudicateApprovedClaimsPaySumsToTotalCost(t *testing.T) {
	e := New(3, Delays{})
	req := baseRequest()
	// A cheap generic whose total_cost is below every fixed tier copay, so
	// the copay-capping branch is exercised as often as the others.
	req.IngredientCostSubmitted = decimal.RequireFromString("3.00")
	req.DispensingFeeSubmitted = decimal.RequireFromString("2.00")

	for i := 0; i < 5000; i++ {
		got := e.Adjudicate(req)
		if got.Status != claim.StatusApproved {
			continue
		}
		sum := got.PatientPay.Add(got.PlanPay).Add(got.Tax)
		if !sum.Equal(req.TotalCost()) {
			t.Fatalf("iteration %d: patient+plan+tax = %s, want total_cost %s (tier %d)",
				i, sum, req.TotalCost(), got.Tier)
		}
	}
}

func TestAdjudicateRejectedClaimsHaveZeroPay(t *testing.T) {
	e := New(42, Delays{})
	req := baseRequest()

	// Run many claims through a fixed-seed engine and check the invariant
	// holds for every rejection encountered (spec.md §3.2).
	for i := 0; i < 2000; i++ {
		got := e.Adjudicate(req)
		if got.Status == claim.StatusRejected {
			if !got.PatientPay.IsZero() || !got.PlanPay.IsZero() || !got.Tax.IsZero() {
				t.Fatalf("iteration %d: rejected claim has nonzero pay: patient=%s plan=%s tax=%s",
					i, got.PatientPay, got.PlanPay, got.Tax)
			}
		}
	}
}

func TestAdjudicateApprovalRateWithinTolerance(t *testing.T) {
	e := New(7, Delays{})
	req := baseRequest()

	const n = 20000
	approved := 0
	for i := 0; i < n; i++ {
		got := e.Adjudicate(req)
		if got.Status == claim.StatusApproved {
			approved++
		}
	}

	pct := float64(approved) / float64(n) * 100
	// spec.md's per-step probabilities compound to roughly 83-88% approval
	// before accounting for the hard quantity/days-supply reject, which
	// this fixture never triggers. Generous band to avoid seed-flakiness.
	if pct < 75 || pct > 95 {
		t.Errorf("approval rate = %.2f%%, want within [75, 95]", pct)
	}
}

func TestDrawTier(t *testing.T) {
	tests := []struct {
		u    float64
		want int
	}{
		{0.0, 1},
		{0.59, 1},
		{0.60, 2},
		{0.79, 2},
		{0.80, 3},
		{0.89, 3},
		{0.90, 4},
		{0.96, 4},
		{0.97, 5},
		{0.999, 5},
	}
	for _, tt := range tests {
		if got := drawTier(tt.u); got != tt.want {
			t.Errorf("drawTier(%v) = %d, want %d", tt.u, got, tt.want)
		}
	}
}

func TestCopayUnknownTier(t *testing.T) {
	if _, err := Copay(99); err == nil {
		t.Error("Copay(99) expected error for unknown tier, got nil")
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*claim.Request)
		want bool
	}{
		{"valid", func(r *claim.Request) {}, true},
		{"negative quantity", func(r *claim.Request) { r.QuantityDispensed = decimal.NewFromInt(-1) }, false},
		// days_supply range is a step-7 hard-reject concern (code 76), not
		// a step-1 presence check, so an out-of-range value still passes
		// validateRequest.
		{"days supply out of range still valid at step 1", func(r *claim.Request) { r.DaysSupply = 200 }, true},
		{"zero date of service", func(r *claim.Request) { r.DateOfService = time.Time{} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mod(&req)
			if got := validateRequest(req); got != tt.want {
				t.Errorf("validateRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}
