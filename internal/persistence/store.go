// Package persistence implements the Persistence Sink (spec.md §4.3): a
// batched writer that resolves business-key foreign references and
// inserts adjudicated claims transactionally.
//
// Grounded on the teacher's internal/repository/db.go: same
// database/sql + modernc.org/sqlite driver, same WAL + foreign_keys
// pragmas, same create-tables-if-not-exists bootstrap. The member,
// pharmacy and drug reference tables are out of scope per spec.md §1
// ("assumed present in the store") — they are created here only so the
// simulator is self-contained to run and test against; no CRUD is
// exposed for them.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pbmcore/adjudicator/internal/pbmerr"
)

// OpenStore opens (or creates) a SQLite database at dsn and ensures the
// claim table and reference tables exist.
func OpenStore(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &pbmerr.StoreError{Reason: "open db", Err: err}
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &pbmerr.StoreError{Reason: "set wal mode", Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, &pbmerr.StoreError{Reason: "enable foreign keys", Err: err}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, &pbmerr.StoreError{Reason: "create tables", Err: err}
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
			surrogate_id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_number INTEGER UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pharmacies (
			surrogate_id INTEGER PRIMARY KEY AUTOINCREMENT,
			pharmacy_business_key TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drugs (
			surrogate_id INTEGER PRIMARY KEY AUTOINCREMENT,
			ndc TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS claims (
			claim_number TEXT PRIMARY KEY,
			member_surrogate_id INTEGER NOT NULL REFERENCES members(surrogate_id),
			pharmacy_surrogate_id INTEGER NOT NULL REFERENCES pharmacies(surrogate_id),
			drug_surrogate_id INTEGER NOT NULL REFERENCES drugs(surrogate_id),
			transaction_type TEXT NOT NULL,
			quantity_dispensed TEXT NOT NULL,
			days_supply INTEGER NOT NULL,
			refill_number INTEGER NOT NULL,
			date_of_service TEXT NOT NULL,
			ingredient_cost_submitted TEXT NOT NULL,
			dispensing_fee_submitted TEXT NOT NULL,
			daw_code TEXT,
			prescriber_npi TEXT,
			received_at TEXT NOT NULL,
			processed_at TEXT NOT NULL,
			status TEXT NOT NULL,
			response_code TEXT NOT NULL,
			response_message TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 0,
			patient_pay TEXT NOT NULL,
			plan_pay TEXT NOT NULL,
			tax TEXT NOT NULL,
			deductible_applied TEXT,
			oop_applied TEXT,
			processing_time_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_member ON claims(member_surrogate_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// VerifyReferenceData confirms the store is reachable and holds at least
// one row in each reference table the engine and sink depend on (spec.md
// §4.5 step 1). It is the only check the core performs on the otherwise
// out-of-scope reference-data subsystem.
func VerifyReferenceData(db *sql.DB) error {
	tables := []string{"members", "pharmacies", "drugs"}
	for _, t := range tables {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + t).Scan(&count); err != nil {
			return &pbmerr.ReferenceError{Reason: fmt.Sprintf("querying %s: %v", t, err)}
		}
		if count == 0 {
			return &pbmerr.ReferenceError{Reason: fmt.Sprintf("reference table %s is empty", t)}
		}
	}
	return nil
}

// CountByStatus returns the store's claim counts, used for the final
// report's database-side verification (spec.md §4.5 step 5, §8 property 10).
type StoreCounts struct {
	Total    int
	Approved int
	Rejected int
}

func CountByStatus(db *sql.DB) (StoreCounts, error) {
	var c StoreCounts
	err := db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status='APPROVED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='REJECTED' THEN 1 ELSE 0 END), 0)
		FROM claims
	`).Scan(&c.Total, &c.Approved, &c.Rejected)
	return c, err
}
