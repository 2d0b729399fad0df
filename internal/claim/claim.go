// Package claim defines the typed claim record that flows through
// ingestion, adjudication and persistence.
package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the NCPDP transaction code carried by a claim.
type TransactionType string

const (
	TransactionBilling   TransactionType = "B1"
	TransactionReversal  TransactionType = "B2"
	TransactionRebill    TransactionType = "B3"
)

// Status is the adjudication outcome of a claim.
type Status string

const (
	StatusPending  Status = ""
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request holds everything submitted by the pharmacy at the point of sale,
// before adjudication.
type Request struct {
	MemberID                int
	PharmacyID              string
	NDC                     string
	QuantityDispensed       decimal.Decimal
	DaysSupply              int
	RefillNumber            int
	DateOfService           time.Time
	IngredientCostSubmitted decimal.Decimal
	DispensingFeeSubmitted  decimal.Decimal
	DAWCode                 string
	PrescriberID            string
}

// Claim is the full adjudicated record persisted by the sink. It embeds
// Request and adds everything the decision engine and ingestor assign.
type Claim struct {
	Request

	ClaimNumber       string
	TransactionType   TransactionType
	ReceivedAt        time.Time
	ProcessedAt       time.Time
	Status            Status
	ResponseCode      string
	ResponseMessage   string
	Tier              int
	PatientPay        decimal.Decimal
	PlanPay           decimal.Decimal
	Tax               decimal.Decimal
	DeductibleApplied *decimal.Decimal
	OOPApplied        *decimal.Decimal
	ProcessingTimeMS  int64
}

// TotalCost is ingredient cost plus dispensing fee, per spec invariant
// total_cost == ingredient_cost + dispensing_fee.
func (r Request) TotalCost() decimal.Decimal {
	return r.IngredientCostSubmitted.Add(r.DispensingFeeSubmitted)
}
