package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tuttscrm_backend/platform/logger"
)

type fakeConfig struct {
	registryURL string
	trafficURL  string
}

func (f fakeConfig) GetRegistrySnapshotURL() string   { return f.registryURL }
func (f fakeConfig) GetTrafficTagSnapshotURL() string { return f.trafficURL }

func serveCSV(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
}

func TestLoadRegistry(t *testing.T) {
	csv := "\uFEFFCódigo,Nome,Telefone,Cidade,Data Ativação\n" +
		"123,Maria Silva,(71) 98917-0372,salvador,05/03/2026\n" +
		"456,João Souza,5585985937856,Fortaleza,\n" +
		",,,,\n" +
		"789,Sem Telefone,,Recife,01/01/26\n"

	server := serveCSV(t, csv)
	defer server.Close()

	loader := New(fakeConfig{registryURL: server.URL}, logger.New("development"))
	registry := loader.LoadRegistry(context.Background())

	if len(registry) != 2 {
		t.Fatalf("expected 2 rows (blank and phoneless skipped), got %d", len(registry))
	}

	maria, ok := registry["71989170372"]
	if !ok {
		t.Fatalf("expected row keyed by normalized phone, keys: %v", keys(registry))
	}
	if maria.Code != "123" || maria.Name != "Maria Silva" {
		t.Fatalf("unexpected row: %+v", maria)
	}
	if maria.City != "SALVADOR" {
		t.Fatalf("city should be uppercased, got %q", maria.City)
	}
	if maria.ActivatedAt == nil || !maria.ActivatedAt.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected activation date: %v", maria.ActivatedAt)
	}

	joao, ok := registry["85985937856"]
	if !ok {
		t.Fatalf("expected DDI-prefixed phone normalized, keys: %v", keys(registry))
	}
	if joao.ActivatedAt != nil {
		t.Fatalf("empty date should stay nil, got %v", joao.ActivatedAt)
	}
}

func TestLoadRegistryHeaderSynonyms(t *testing.T) {
	csv := "cod,name,tel,regiao\n55,Ana,71988887777,Camaçari\n"

	server := serveCSV(t, csv)
	defer server.Close()

	loader := New(fakeConfig{registryURL: server.URL}, logger.New("development"))
	registry := loader.LoadRegistry(context.Background())

	row, ok := registry["71988887777"]
	if !ok {
		t.Fatalf("expected synonym headers to be recognized, keys: %v", keys(registry))
	}
	if row.Code != "55" || row.Name != "Ana" || row.City != "CAMAÇARI" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestLoadTrafficTags(t *testing.T) {
	csv := "Phone,TP\n5571989170372,TP-03\n71999998888, \n"

	server := serveCSV(t, csv)
	defer server.Close()

	loader := New(fakeConfig{trafficURL: server.URL}, logger.New("development"))
	tags := loader.LoadTrafficTags(context.Background())

	if len(tags) != 1 {
		t.Fatalf("expected 1 tag (empty tag skipped), got %d", len(tags))
	}
	if tags["71989170372"] != "TP-03" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestLoadDegradedSources(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()

	loader := New(fakeConfig{registryURL: broken.URL, trafficURL: ""}, logger.New("development"))

	if got := loader.LoadRegistry(context.Background()); len(got) != 0 {
		t.Fatalf("broken source must yield empty map, got %v", got)
	}
	if got := loader.LoadTrafficTags(context.Background()); len(got) != 0 {
		t.Fatalf("unconfigured source must yield empty map, got %v", got)
	}
}

func TestParseDateBR(t *testing.T) {
	cases := []struct {
		raw  string
		want string // empty = nil expected
	}{
		{"05/03/2026", "2026-03-05"},
		{"5/3/26", "2026-03-05"},
		{"01-12-2025", "2025-12-01"},
		{"", ""},
		{"not a date", ""},
		{"32/13/2026", ""},
	}

	for _, tc := range cases {
		got := ParseDateBR(tc.raw)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("ParseDateBR(%q) = %v, want nil", tc.raw, got)
			}
			continue
		}
		if got == nil || got.Format("2006-01-02") != tc.want {
			t.Fatalf("ParseDateBR(%q) = %v, want %s", tc.raw, got, tc.want)
		}
	}
}

func keys(m map[string]RegistryRow) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
