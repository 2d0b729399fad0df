package persistence

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"github.com/pbmcore/adjudicator/internal/claim"
	"github.com/pbmcore/adjudicator/internal/pbmerr"
)

// Sink is the batched, transactional claim writer (spec.md §4.3).
// Grounded on the teacher's internal/repository/transaction_repo.go
// BulkInsert shape: one *sql.Tx, one prepared statement reused per row,
// rollback on any failure.
type Sink struct {
	db *sql.DB

	memberCache   *lru.Cache[int, int64]
	pharmacyCache *lru.Cache[string, int64]
	drugCache     *lru.Cache[string, int64]

	mu              sync.Mutex
	totalInserted   int64
	lastProgressLog int64
}

// NewSink wraps db. cacheSize bounds the per-process business-key
// resolution cache (spec.md §9 Design Notes: load reference lookups once
// into read-only in-memory maps, here realized as an LRU sized to a
// working set rather than the full reference table).
func NewSink(db *sql.DB, cacheSize int) (*Sink, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	memberCache, err := lru.New[int, int64](cacheSize)
	if err != nil {
		return nil, err
	}
	pharmacyCache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, err
	}
	drugCache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Sink{db: db, memberCache: memberCache, pharmacyCache: pharmacyCache, drugCache: drugCache}, nil
}

// InsertBatch resolves foreign business keys and persists every claim in
// batch as a single all-or-nothing transaction (spec.md §3.2, §4.3).
func (s *Sink) InsertBatch(batch []claim.Claim) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	resolved := make([]resolvedClaim, len(batch))
	for i, c := range batch {
		memberID, err := s.resolveMember(c.MemberID)
		if err != nil {
			return 0, s.integrityError(batch, c, "member_id", err)
		}
		pharmacyID, err := s.resolvePharmacy(c.PharmacyID)
		if err != nil {
			return 0, s.integrityError(batch, c, "pharmacy_id", err)
		}
		drugID, err := s.resolveDrug(c.NDC)
		if err != nil {
			return 0, s.integrityError(batch, c, "ndc", err)
		}
		resolved[i] = resolvedClaim{claim: c, memberID: memberID, pharmacyID: pharmacyID, drugID: drugID}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &pbmerr.StoreError{Reason: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertClaimSQL)
	if err != nil {
		return 0, &pbmerr.StoreError{Reason: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for i, r := range resolved {
		if err := execInsert(stmt, r); err != nil {
			return 0, &pbmerr.IntegrityError{
				BatchFirstClaimNumber: batch[0].ClaimNumber,
				BatchSize:             len(batch),
				Reason:                fmt.Sprintf("row %d (%s): %v", i, r.claim.ClaimNumber, err),
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &pbmerr.StoreError{Reason: "commit batch", Err: err}
	}

	s.recordProgress(len(batch))
	return len(batch), nil
}

type resolvedClaim struct {
	claim      claim.Claim
	memberID   int64
	pharmacyID int64
	drugID     int64
}

const insertClaimSQL = `
INSERT INTO claims (
	claim_number, member_surrogate_id, pharmacy_surrogate_id, drug_surrogate_id,
	transaction_type, quantity_dispensed, days_supply, refill_number, date_of_service,
	ingredient_cost_submitted, dispensing_fee_submitted, daw_code, prescriber_npi,
	received_at, processed_at, status, response_code, response_message, tier,
	patient_pay, plan_pay, tax, deductible_applied, oop_applied, processing_time_ms
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`

func execInsert(stmt *sql.Stmt, r resolvedClaim) error {
	c := r.claim
	_, err := stmt.Exec(
		c.ClaimNumber, r.memberID, r.pharmacyID, r.drugID,
		string(c.TransactionType), c.QuantityDispensed.String(), c.DaysSupply, c.RefillNumber,
		c.DateOfService.Format("2006-01-02"),
		c.IngredientCostSubmitted.String(), c.DispensingFeeSubmitted.String(),
		nullableString(c.DAWCode), nullableString(c.PrescriberID),
		c.ReceivedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
		c.ProcessedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
		string(c.Status), c.ResponseCode, c.ResponseMessage, c.Tier,
		c.PatientPay.String(), c.PlanPay.String(), c.Tax.String(),
		nullableDecimalPtr(c.DeductibleApplied), nullableDecimalPtr(c.OOPApplied),
		c.ProcessingTimeMS,
	)
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableDecimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func (s *Sink) resolveMember(memberNumber int) (int64, error) {
	if id, ok := s.memberCache.Get(memberNumber); ok {
		return id, nil
	}
	var id int64
	err := s.db.QueryRow("SELECT surrogate_id FROM members WHERE member_number = ?", memberNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("unknown member %d: %w", memberNumber, err)
	}
	s.memberCache.Add(memberNumber, id)
	return id, nil
}

func (s *Sink) resolvePharmacy(businessKey string) (int64, error) {
	if id, ok := s.pharmacyCache.Get(businessKey); ok {
		return id, nil
	}
	var id int64
	err := s.db.QueryRow("SELECT surrogate_id FROM pharmacies WHERE pharmacy_business_key = ?", businessKey).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("unknown pharmacy %s: %w", businessKey, err)
	}
	s.pharmacyCache.Add(businessKey, id)
	return id, nil
}

func (s *Sink) resolveDrug(ndc string) (int64, error) {
	if id, ok := s.drugCache.Get(ndc); ok {
		return id, nil
	}
	var id int64
	err := s.db.QueryRow("SELECT surrogate_id FROM drugs WHERE ndc = ?", ndc).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("unknown drug %s: %w", ndc, err)
	}
	s.drugCache.Add(ndc, id)
	return id, nil
}

func (s *Sink) integrityError(batch []claim.Claim, offending claim.Claim, field string, err error) error {
	return &pbmerr.IntegrityError{
		BatchFirstClaimNumber: batch[0].ClaimNumber,
		BatchSize:             len(batch),
		Reason:                fmt.Sprintf("claim %s: unresolved %s: %v", offending.ClaimNumber, field, err),
	}
}

// recordProgress logs a line every 10,000 successfully inserted rows
// (spec.md §4.3).
func (s *Sink) recordProgress(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalInserted += int64(n)
	if s.totalInserted-s.lastProgressLog >= 10000 {
		log.Printf("[persistence] inserted %d rows total", s.totalInserted)
		s.lastProgressLog = s.totalInserted
	}
}
