// Package reporting builds the activated-professionals report by merging the
// registry roster snapshot with the funnel's own activation records.
package reporting

import (
	"sort"
	"strings"
	"time"
)

// Source labels where a merged entry came from.
const (
	SourceSpreadsheet = "spreadsheet"
	SourceCRM         = "crm"
)

// ActivatedEntry is one activated professional in the merged report.
type ActivatedEntry struct {
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Region      string     `json:"region,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	Source      string     `json:"source"`
}

// MergeActivated combines both sources into one deduplicated list. The
// roster sheet is authoritative: when both sources carry the same
// professional (same code, digits only) the sheet entry wins. Entries
// without a code are keyed by phone instead. Newest activation first.
func MergeActivated(sheet, crm []ActivatedEntry) []ActivatedEntry {
	merged := make([]ActivatedEntry, 0, len(sheet)+len(crm))
	seen := make(map[string]struct{}, len(sheet)+len(crm))

	for _, entry := range sheet {
		entry.Source = SourceSpreadsheet
		if key := entryKey(entry); key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		merged = append(merged, entry)
	}

	for _, entry := range crm {
		entry.Source = SourceCRM
		if key := entryKey(entry); key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		merged = append(merged, entry)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].ActivatedAt, merged[j].ActivatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return merged
}

func entryKey(entry ActivatedEntry) string {
	if code := onlyDigits(entry.Code); code != "" {
		return "c:" + code
	}
	if phone := onlyDigits(entry.Phone); phone != "" {
		return "p:" + phone
	}
	return ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
