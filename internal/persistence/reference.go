package persistence

import "database/sql"

// SeedReferenceData inserts the given business keys into the reference
// tables. It is not a CRUD surface (spec.md §1 explicitly puts per-entity
// CRUD and reference-data loading out of scope) — it exists only so this
// repository's own tests and demo runs have a reachable reference store
// to resolve against, standing in for the externally-loaded member,
// pharmacy and drug registries a real deployment would already have.
func SeedReferenceData(db *sql.DB, members []int, pharmacies, ndcs []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range members {
		if _, err := tx.Exec("INSERT OR IGNORE INTO members (member_number) VALUES (?)", m); err != nil {
			return err
		}
	}
	for _, p := range pharmacies {
		if _, err := tx.Exec("INSERT OR IGNORE INTO pharmacies (pharmacy_business_key) VALUES (?)", p); err != nil {
			return err
		}
	}
	for _, d := range ndcs {
		if _, err := tx.Exec("INSERT OR IGNORE INTO drugs (ndc) VALUES (?)", d); err != nil {
			return err
		}
	}

	return tx.Commit()
}
