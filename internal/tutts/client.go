// Package tutts implements the HTTP client for the professional registry's
// status integration. The registry is the authoritative source for whether a
// lead's registration exists and is active.
package tutts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"
)

const (
	identifierHeader = "identificador"
	identifierValue  = "prof-status"

	defaultTimeout = 10 * time.Second
)

// Status is the outcome of a registry lookup for one lead.
type Status struct {
	// Found reports whether the registry knows any variant of the phone.
	Found bool
	// Active is meaningful only when Found is true.
	Active bool
	// MatchedPhone is the display-formatted variant that produced a hit.
	MatchedPhone string
	// Err carries a lookup-level problem (missing token, phone missing).
	// Transport errors on individual variants are logged and skipped.
	Err string
}

// Client calls the registry's status endpoint.
type Client struct {
	cfg  config.TuttsConfig
	http *http.Client
	log  *logger.Logger
}

// New creates a registry status client.
func New(cfg config.TuttsConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log,
	}
}

type apiResponse struct {
	Sucesso []struct {
		Ativo string `json:"ativo"`
	} `json:"Sucesso"`
	Erro string `json:"Erro"`
}

// Check looks a phone up in the registry, trying each display variant of the
// number until one hits. A registry miss on every variant is a normal
// outcome, not an error.
func (c *Client) Check(ctx context.Context, rawPhone string) (Status, error) {
	if c.cfg.GetTuttsToken() == "" {
		c.log.Error("registry token not configured")
		return Status{Err: "registry token not configured"}, nil
	}
	if rawPhone == "" {
		return Status{Err: "phone not provided"}, nil
	}

	for _, variant := range phone.DisplayVariants(rawPhone) {
		found, active, err := c.query(ctx, variant)
		if err != nil {
			if ctx.Err() != nil {
				return Status{}, ctx.Err()
			}
			c.log.Warn("registry variant lookup failed", "phone", variant, "error", err)
			continue
		}
		if found {
			return Status{Found: true, Active: active, MatchedPhone: variant}, nil
		}
	}

	return Status{}, nil
}

func (c *Client) query(ctx context.Context, celular string) (found, active bool, err error) {
	body, err := json.Marshal(map[string]string{"celular": celular})
	if err != nil {
		return false, false, fmt.Errorf("marshal registry request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GetTuttsAPIURL(), bytes.NewReader(body))
	if err != nil {
		return false, false, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.GetTuttsToken())
	req.Header.Set(identifierHeader, identifierValue)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, false, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, false, fmt.Errorf("decode registry response: %w", err)
	}

	if len(parsed.Sucesso) > 0 {
		return true, parsed.Sucesso[0].Ativo == "S", nil
	}

	// The registry reports misses as an error payload; that includes the
	// "no professional found" case, which is a clean miss.
	return false, false, nil
}
