package reporting

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestMergeActivatedSheetWins(t *testing.T) {
	sheet := []ActivatedEntry{
		{Code: "123", Name: "Maria Silva", Region: "SALVADOR", ActivatedAt: date(2026, 8, 10)},
	}
	crm := []ActivatedEntry{
		{Code: "123", Name: "Maria S.", Region: "RECIFE", ActivatedAt: date(2026, 8, 12)},
		{Code: "456", Name: "João Souza", Region: "FORTALEZA", ActivatedAt: date(2026, 8, 1)},
	}

	merged := MergeActivated(sheet, crm)

	if len(merged) != 2 {
		t.Fatalf("expected 2 entries after dedup, got %d: %v", len(merged), merged)
	}
	for _, entry := range merged {
		if entry.Code == "123" {
			if entry.Source != SourceSpreadsheet || entry.Region != "SALVADOR" {
				t.Fatalf("sheet entry must win the duplicate: %+v", entry)
			}
		}
	}
}

func TestMergeActivatedCodeKeyKeepsDigitsVerbatim(t *testing.T) {
	sheet := []ActivatedEntry{
		{Code: "CRM-123", ActivatedAt: date(2026, 8, 10)},
		{Code: "00123", ActivatedAt: date(2026, 8, 9)},
	}
	crm := []ActivatedEntry{
		{Code: "123", ActivatedAt: date(2026, 8, 11)},
	}

	// Non-digits are stripped from the key, but the digit sequence itself is
	// identity: "00123" and "123" are different registrations, while
	// "CRM-123" and "123" are the same one.
	merged := MergeActivated(sheet, crm)
	if len(merged) != 2 {
		t.Fatalf("expected 2 entries, got %v", merged)
	}
	for _, entry := range merged {
		if entry.Code == "123" {
			t.Fatalf("bare crm code must dedup against its formatted sheet form: %+v", merged)
		}
	}
}

func TestMergeActivatedPhoneKeyWithoutCode(t *testing.T) {
	sheet := []ActivatedEntry{
		{Phone: "71989170372", ActivatedAt: date(2026, 8, 10)},
	}
	crm := []ActivatedEntry{
		{Phone: "71989170372", ActivatedAt: date(2026, 8, 11)},
		{Phone: "85985937856", ActivatedAt: date(2026, 8, 9)},
	}

	merged := MergeActivated(sheet, crm)
	if len(merged) != 2 {
		t.Fatalf("expected phone-keyed dedup, got %v", merged)
	}
}

func TestMergeActivatedSortsNewestFirst(t *testing.T) {
	merged := MergeActivated(
		[]ActivatedEntry{{Code: "1", ActivatedAt: date(2026, 8, 1)}},
		[]ActivatedEntry{
			{Code: "2", ActivatedAt: date(2026, 8, 20)},
			{Code: "3"},
		},
	)

	if merged[0].Code != "2" || merged[1].Code != "1" {
		t.Fatalf("expected newest first, got %v", merged)
	}
	if merged[2].Code != "3" {
		t.Fatalf("dateless entries go last, got %v", merged)
	}
}
