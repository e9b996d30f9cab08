// Package snapshot loads the published spreadsheet exports that mirror the
// professional registry: the main roster (name, code, city, activation date)
// and the paid-traffic tag sheet. Both are degraded sources: a fetch or parse
// failure yields an empty map and a log line, never an error that would stop
// a reconciliation run.
package snapshot

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fetchTimeout = 20 * time.Second

// RegistryRow is one roster entry, keyed by normalized phone.
type RegistryRow struct {
	Code        string
	Name        string
	Phone       string
	City        string
	ActivatedAt *time.Time
}

// Loader fetches and parses the snapshot spreadsheets.
type Loader struct {
	cfg  config.SnapshotConfig
	http *http.Client
	log  *logger.Logger
}

// New creates a snapshot loader.
func New(cfg config.SnapshotConfig, log *logger.Logger) *Loader {
	return &Loader{
		cfg:  cfg,
		http: &http.Client{Timeout: fetchTimeout},
		log:  log,
	}
}

// LoadRegistry fetches the main roster sheet and indexes it by normalized
// phone. Returns an empty map when the sheet is unavailable.
func (l *Loader) LoadRegistry(ctx context.Context) map[string]RegistryRow {
	result := make(map[string]RegistryRow)

	rows, err := l.fetchCSV(ctx, l.cfg.GetRegistrySnapshotURL())
	if err != nil {
		l.log.Warn("registry snapshot unavailable", "error", err)
		return result
	}

	for _, row := range rows {
		rawPhone := firstValue(row, "telefone", "phone", "tel")
		normalized := phone.Normalize(rawPhone)
		if normalized == "" {
			continue
		}

		entry := RegistryRow{
			Code:  firstValue(row, "codigo", "cod"),
			Name:  firstValue(row, "nome", "name"),
			Phone: normalized,
			City:  strings.ToUpper(firstValue(row, "cidade", "city", "regiao")),
		}
		if activated := ParseDateBR(firstValue(row, "data ativacao", "data_ativacao")); activated != nil {
			entry.ActivatedAt = activated
		}
		result[normalized] = entry
	}

	l.log.Info("registry snapshot loaded", "rows", len(result))
	return result
}

// LoadTrafficTags fetches the paid-traffic sheet and indexes tag values by
// normalized phone. Returns an empty map when the sheet is unavailable.
func (l *Loader) LoadTrafficTags(ctx context.Context) map[string]string {
	result := make(map[string]string)

	rows, err := l.fetchCSV(ctx, l.cfg.GetTrafficTagSnapshotURL())
	if err != nil {
		l.log.Warn("traffic tag snapshot unavailable", "error", err)
		return result
	}

	for _, row := range rows {
		rawPhone := firstValue(row, "phone", "telefone")
		tag := strings.TrimSpace(firstValue(row, "tp"))
		if rawPhone == "" || tag == "" {
			continue
		}
		if normalized := phone.Normalize(rawPhone); normalized != "" {
			result[normalized] = tag
		}
	}

	l.log.Info("traffic tag snapshot loaded", "rows", len(result))
	return result
}

func (l *Loader) fetchCSV(ctx context.Context, url string) ([]map[string]string, error) {
	if url == "" {
		return nil, errNoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	return parseCSV(resp.Body)
}

var errNoURL = &statusError{code: 0}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	if e.code == 0 {
		return "snapshot URL not configured"
	}
	return "snapshot fetch returned status " + http.StatusText(e.code)
}

// parseCSV reads a CSV stream into header-keyed rows. Headers are folded:
// BOM stripped, diacritics removed, lowercased. Short rows are padded.
func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = foldHeader(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var headerFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldHeader(raw string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	folded, _, err := transform.String(headerFolder, cleaned)
	if err != nil {
		folded = cleaned
	}
	return strings.ToLower(folded)
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func firstValue(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if value := row[key]; value != "" {
			return value
		}
	}
	return ""
}

// ParseDateBR parses DD/MM/YYYY or DD-MM-YY dates from the roster sheet.
// Two-digit years are 20xx. Unparseable input yields nil.
func ParseDateBR(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return nil
	}

	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}

	normalized := pad2(parts[0]) + "/" + pad2(parts[1]) + "/" + year
	parsed, err := time.Parse("02/01/2006", normalized)
	if err != nil {
		return nil
	}
	return &parsed
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
