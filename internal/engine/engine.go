// Package engine implements the Decision Engine (spec.md §4.2): an
// eight-step adjudication pipeline, pure with respect to persistent
// state, deterministic given a seeded random source.
//
// Grounded on the teacher's internal/reconciliation/service.go shape:
// RunFullReconciliation calls an ordered sequence of detection steps and
// aggregates their outcomes. Here each step instead gates a single
// claim's progress through the pipeline, stopping at the first failure.
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pbmcore/adjudicator/internal/claim"
)

// Delays configures the optional per-step fidelity sleeps (spec.md §4.2
// "Timing contract"). The zero value disables all delays, which is the
// default for high-speedup runs (Design Notes §9).
type Delays struct {
	Enabled     bool
	Validate    time.Duration
	Eligibility time.Duration
	Formulary   time.Duration
	DUR         time.Duration
	Pricing     time.Duration
}

// DefaultDelays returns the midpoint of each fidelity target range in
// spec.md §4.2, disabled by default.
func DefaultDelays() Delays {
	return Delays{
		Enabled:     false,
		Validate:    75 * time.Millisecond,
		Eligibility: 150 * time.Millisecond,
		Formulary:   100 * time.Millisecond,
		DUR:         350 * time.Millisecond,
		Pricing:     150 * time.Millisecond,
	}
}

// Engine adjudicates claims. It holds a seeded random source injected by
// the caller (Design Notes §9: never a process-global RNG) so
// distributional tests are reproducible.
type Engine struct {
	rng    *rand.Rand
	delays Delays
}

// New builds an Engine seeded with seed, using the given fidelity delays.
func New(seed int64, delays Delays) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed)), delays: delays}
}

// rejection codes and messages, spec.md §4.2.
const (
	codeMissingData       = "M0"
	codePatientNotCovered = "85"
	codePharmacyNotInNet  = "75"
	codeProductNotCovered = "70"
	codeDURReject         = "88"
	codePriorAuthRequired = "75"
	codePlanLimits        = "76"
	codeApproved          = "0"
)

// Adjudicate runs the eight-step pipeline on req and returns a fully
// populated claim.Claim. It is pure with respect to any persistent store;
// only e.rng advances.
func (e *Engine) Adjudicate(req claim.Request) claim.Claim {
	start := time.Now()

	c := claim.Claim{
		Request:         req,
		TransactionType: claim.TransactionBilling,
	}

	reject := func(code, msg string) claim.Claim {
		c.Status = claim.StatusRejected
		c.ResponseCode = code
		c.ResponseMessage = msg
		c.PatientPay = decimal.Zero
		c.PlanPay = decimal.Zero
		c.Tax = decimal.Zero
		c.ProcessedAt = time.Now().UTC()
		c.ProcessingTimeMS = time.Since(start).Milliseconds()
		return c
	}

	// Step 1: validate request.
	e.sleep(e.delays.Validate)
	if !validateRequest(req) {
		return reject(codeMissingData, "Missing/Invalid Request Data")
	}

	// Step 2: eligibility — simulated 5% failure.
	e.sleep(e.delays.Eligibility)
	if e.fail(0.05) {
		return reject(codePatientNotCovered, "Patient Not Covered")
	}

	// Step 3: pharmacy network — simulated 5% failure.
	if e.fail(0.05) {
		return reject(codePharmacyNotInNet, "Pharmacy Not In Network")
	}

	// Step 4: formulary coverage — simulated 3% failure.
	e.sleep(e.delays.Formulary)
	if e.fail(0.03) {
		return reject(codeProductNotCovered, "Product Not Covered")
	}

	// Step 5: clinical edits (DUR) — simulated 2% failure.
	e.sleep(e.delays.DUR)
	if e.fail(0.02) {
		return reject(codeDURReject, "DUR Reject")
	}

	// Step 6: prior authorization — simulated 2% failure.
	if e.fail(0.02) {
		return reject(codePriorAuthRequired, "Prior Authorization Required")
	}

	// Step 7: quantity limits — hard reject, else 1% simulated failure.
	qty, _ := req.QuantityDispensed.Float64()
	if qty > 360 || req.DaysSupply > 100 || req.DaysSupply <= 0 {
		return reject(codePlanLimits, "Plan Limitations Exceeded")
	}
	if e.fail(0.01) {
		return reject(codePlanLimits, "Plan Limitations Exceeded")
	}

	// Step 8: pricing calculation, then approve.
	e.sleep(e.delays.Pricing)
	c.Tier = drawTier(e.rng.Float64())
	c.PatientPay, c.PlanPay, c.Tax = price(req, c.Tier)
	c.Status = claim.StatusApproved
	c.ResponseCode = codeApproved
	c.ResponseMessage = tierMessage(c.Tier)
	c.ProcessedAt = time.Now().UTC()
	c.ProcessingTimeMS = time.Since(start).Milliseconds()
	return c
}

func (e *Engine) fail(p float64) bool {
	return e.rng.Float64() < p
}

func (e *Engine) sleep(d time.Duration) {
	if e.delays.Enabled && d > 0 {
		time.Sleep(d)
	}
}

func validateRequest(r claim.Request) bool {
	if r.MemberID <= 0 || r.PharmacyID == "" || len(r.NDC) != 11 {
		return false
	}
	if r.QuantityDispensed.IsZero() || r.QuantityDispensed.IsNegative() {
		return false
	}
	if r.DateOfService.IsZero() {
		return false
	}
	return true
}

// price computes the pricing breakdown for an approved claim (spec.md
// §4.2 step 8).
func price(req claim.Request, tier int) (patientPay, planPay, tax decimal.Decimal) {
	total := req.TotalCost()
	tax = decimal.Zero

	if tier >= 1 && tier <= 3 {
		copay, _ := Copay(tier)
		patientPay = decimal.Min(copay, total)
		planPay = total.Sub(patientPay)
		return patientPay, planPay, tax
	}

	// Tiers 4-5: coinsurance.
	patientPay = total.Mul(decimal.NewFromFloat(coinsuranceRate)).Round(2)
	planPay = total.Sub(patientPay)
	return patientPay, planPay, tax
}

func tierMessage(tier int) string {
	switch tier {
	case 1, 2, 3:
		return fmt.Sprintf("Approved: tier %d copay", tier)
	default:
		return fmt.Sprintf("Approved: tier %d coinsurance", tier)
	}
}
