package ingestion

import (
	"testing"
)

func TestParseMemberID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"purely numeric", "1042", 1042, false},
		{"prefixed", "MBR000466742", 466742, false},
		{"prefixed leading zeros", "ABC007", 7, false},
		{"empty", "", 0, true},
		{"garbage", "not-an-id", 0, true},
		{"prefix with no digits", "MBR", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMemberID(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMemberID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseMemberID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestColumnMapRequireAll(t *testing.T) {
	header := []string{"member_id", "pharmacy_id", "ndc"}
	m := buildColumnMap(header)

	if err := m.requireAll([]string{"member_id", "ndc"}); err != nil {
		t.Errorf("requireAll() unexpected error: %v", err)
	}
	if err := m.requireAll([]string{"member_id", "days_supply"}); err == nil {
		t.Error("requireAll() expected error for missing column, got nil")
	}
}

func TestColumnMapGet(t *testing.T) {
	header := []string{"Member_ID", " pharmacy_id "}
	m := buildColumnMap(header)
	row := []string{"1042", "  PHR0001  "}

	if got := m.get(row, "member_id"); got != "1042" {
		t.Errorf("get(member_id) = %q, want %q", got, "1042")
	}
	if got := m.get(row, "pharmacy_id"); got != "PHR0001" {
		t.Errorf("get(pharmacy_id) = %q, want %q", got, "PHR0001")
	}
	if got := m.get(row, "missing"); got != "" {
		t.Errorf("get(missing) = %q, want empty string", got)
	}
}

func TestParseRowValidAndInvalid(t *testing.T) {
	header := requiredColumns
	cols := buildColumnMap(header)

	validRow := []string{
		"1042", "PHR0001", "12345678901", "30", "30", "0",
		"2026-01-15", "45.99", "2.50",
	}
	c, err := parseRow(validRow, cols, 2)
	if err != nil {
		t.Fatalf("parseRow() unexpected error: %v", err)
	}
	if c.MemberID != 1042 {
		t.Errorf("MemberID = %d, want 1042", c.MemberID)
	}
	if c.PharmacyID != "PHR0001" {
		t.Errorf("PharmacyID = %q, want PHR0001", c.PharmacyID)
	}
	if c.DaysSupply != 30 {
		t.Errorf("DaysSupply = %d, want 30", c.DaysSupply)
	}

	tests := []struct {
		name string
		row  []string
	}{
		{"bad member id", []string{"not-an-id", "PHR0001", "12345678901", "30", "30", "0", "2026-01-15", "45.99", "2.50"}},
		{"empty pharmacy", []string{"1042", "", "12345678901", "30", "30", "0", "2026-01-15", "45.99", "2.50"}},
		{"bad quantity", []string{"1042", "PHR0001", "12345678901", "abc", "30", "0", "2026-01-15", "45.99", "2.50"}},
		{"bad date", []string{"1042", "PHR0001", "12345678901", "30", "30", "0", "not-a-date", "45.99", "2.50"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseRow(tt.row, cols, 3); err == nil {
				t.Error("parseRow() expected error, got nil")
			}
		})
	}
}
