package tutts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tuttscrm_backend/platform/logger"
)

type fakeConfig struct {
	url   string
	token string
}

func (f fakeConfig) GetTuttsAPIURL() string { return f.url }
func (f fakeConfig) GetTuttsToken() string  { return f.token }

func newTestClient(url, token string) *Client {
	return New(fakeConfig{url: url, token: token}, logger.New("development"))
}

func TestCheckActiveProfessional(t *testing.T) {
	var gotAuth, gotIdentifier string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdentifier = r.Header.Get("identificador")

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["celular"] != "(71) 98917-0372" {
			t.Fatalf("unexpected celular %q", body["celular"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Sucesso": []map[string]string{{"ativo": "S"}},
		})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, "secret").Check(context.Background(), "5571989170372")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !status.Found {
		t.Fatalf("expected Found, got %+v", status)
	}
	if !status.Active {
		t.Fatalf("expected Active, got %+v", status)
	}
	if status.MatchedPhone != "(71) 98917-0372" {
		t.Fatalf("unexpected matched phone %q", status.MatchedPhone)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotIdentifier != "prof-status" {
		t.Fatalf("unexpected identifier header %q", gotIdentifier)
	}
}

func TestCheckInactiveProfessional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Sucesso": []map[string]string{{"ativo": "N"}},
		})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, "secret").Check(context.Background(), "71989170372")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !status.Found || status.Active {
		t.Fatalf("expected found inactive, got %+v", status)
	}
}

func TestCheckNotFoundIsCleanMiss(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Erro": "Nenhum profissional encontrado com os dados informados",
		})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, "secret").Check(context.Background(), "71989170372")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if status.Found {
		t.Fatalf("expected miss, got %+v", status)
	}
	if status.Err != "" {
		t.Fatalf("a registry miss is not a lookup error, got %q", status.Err)
	}
	if calls < 2 {
		t.Fatalf("expected every variant to be tried, got %d calls", calls)
	}
}

func TestCheckTriesLegacyVariantWithoutNine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		// Only the legacy format without the mobile 9 exists upstream.
		if body["celular"] == "(85) 8593-7856" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"Sucesso": []map[string]string{{"ativo": "N"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"Erro": "Nenhum profissional encontrado"})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, "secret").Check(context.Background(), "85985937856")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !status.Found {
		t.Fatalf("expected legacy variant hit, got %+v", status)
	}
	if status.MatchedPhone != "(85) 8593-7856" {
		t.Fatalf("unexpected matched phone %q", status.MatchedPhone)
	}
}

func TestCheckMissingToken(t *testing.T) {
	status, err := newTestClient("http://unused", "").Check(context.Background(), "71989170372")
	if err != nil {
		t.Fatalf("missing token must not be a hard error: %v", err)
	}
	if status.Found {
		t.Fatalf("expected not found, got %+v", status)
	}
	if status.Err == "" {
		t.Fatalf("expected a lookup-level error message")
	}
}

func TestCheckSkipsFailingVariant(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("not json"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Sucesso": []map[string]string{{"ativo": "S"}},
		})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, "secret").Check(context.Background(), "85985937856")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !status.Found {
		t.Fatalf("expected second variant to hit after transport error, got %+v", status)
	}
}
