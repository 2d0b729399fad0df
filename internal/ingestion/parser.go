package ingestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pbmcore/adjudicator/internal/claim"
)

// requiredColumns are the column names spec.md §6.1 requires every input
// file to carry, addressed by name rather than position (grounded on the
// pack's header-to-index colMap idiom rather than the teacher's
// fixed-position CSV columns, since spec.md explicitly says column order
// is not assumed).
var requiredColumns = []string{
	"member_id", "pharmacy_id", "ndc", "quantity_dispensed", "days_supply",
	"refill_number", "date_of_service", "ingredient_cost_submitted",
	"dispensing_fee_submitted",
}

var memberPrefixPattern = regexp.MustCompile(`^[A-Z]+(\d+)$`)

// rowWarning is a per-row parse failure. It is never fatal; the ingestor
// counts and skips it (spec.md §7: ParseWarning).
type rowWarning struct {
	Line   int
	Reason string
}

func (w rowWarning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// columnMap resolves header names to column indices.
type columnMap map[string]int

func buildColumnMap(header []string) columnMap {
	m := make(columnMap, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func (m columnMap) requireAll(cols []string) error {
	for _, c := range cols {
		if _, ok := m[c]; !ok {
			return fmt.Errorf("missing required column: %s", c)
		}
	}
	return nil
}

func (m columnMap) get(row []string, col string) string {
	idx, ok := m[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMemberID accepts either a purely numeric id or a prefixed form like
// MBR000466742, stripping the alphabetic prefix (spec.md §4.1, §6.1).
func parseMemberID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty member_id")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	if m := memberPrefixPattern.FindStringSubmatch(raw); m != nil {
		return strconv.Atoi(m[1])
	}
	return 0, fmt.Errorf("unrecognized member_id format: %q", raw)
}

func parseRow(row []string, cols columnMap, lineNum int) (claim.Claim, error) {
	memberID, err := parseMemberID(cols.get(row, "member_id"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("member_id: %w", err)
	}

	pharmacyID := cols.get(row, "pharmacy_id")
	if pharmacyID == "" {
		return claim.Claim{}, fmt.Errorf("pharmacy_id: required")
	}

	ndc := cols.get(row, "ndc")
	if ndc == "" {
		return claim.Claim{}, fmt.Errorf("ndc: required")
	}

	qty, err := decimal.NewFromString(cols.get(row, "quantity_dispensed"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("quantity_dispensed: %w", err)
	}
	qty = qty.Round(3)

	daysSupply, err := strconv.Atoi(cols.get(row, "days_supply"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("days_supply: %w", err)
	}

	refillRaw := cols.get(row, "refill_number")
	refill := 0
	if refillRaw != "" {
		refill, err = strconv.Atoi(refillRaw)
		if err != nil {
			return claim.Claim{}, fmt.Errorf("refill_number: %w", err)
		}
	}

	dos, err := time.Parse("2006-01-02", cols.get(row, "date_of_service"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("date_of_service: %w", err)
	}

	ingredientCost, err := decimal.NewFromString(cols.get(row, "ingredient_cost_submitted"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("ingredient_cost_submitted: %w", err)
	}
	dispensingFee, err := decimal.NewFromString(cols.get(row, "dispensing_fee_submitted"))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("dispensing_fee_submitted: %w", err)
	}

	txnType := claim.TransactionType(strings.ToUpper(cols.get(row, "transaction_type")))
	if txnType == "" {
		txnType = claim.TransactionBilling
	}

	c := claim.Claim{
		Request: claim.Request{
			MemberID:                memberID,
			PharmacyID:              pharmacyID,
			NDC:                     ndc,
			QuantityDispensed:       qty,
			DaysSupply:              daysSupply,
			RefillNumber:            refill,
			DateOfService:           dos,
			IngredientCostSubmitted: ingredientCost.Round(2),
			DispensingFeeSubmitted:  dispensingFee.Round(2),
			DAWCode:                 cols.get(row, "daw_code"),
			PrescriberID:            cols.get(row, "prescriber_npi"),
		},
		ClaimNumber:     cols.get(row, "claim_number"),
		TransactionType: txnType,
		Status:          claim.StatusPending,
	}

	return c, nil
}
