// Package rdap looks up domain registrations over RDAP, the JSON successor
// of WHOIS: registrar, registration date and expiry.
package rdap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
)

// DefaultBaseURL is a bootstrap service that redirects to the RDAP server
// responsible for the top-level domain.
const DefaultBaseURL = "https://rdap.org"

const maxBody = 1 << 20

// Client implements providers.RegistrationClient.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type domainResponse struct {
	LDHName  string   `json:"ldhName"`
	Events   []event  `json:"events"`
	Entities []entity `json:"entities"`
}

type event struct {
	Action string    `json:"eventAction"`
	Date   time.Time `json:"eventDate"`
}

type entity struct {
	Roles      []string          `json:"roles"`
	Handle     string            `json:"handle"`
	VCardArray []json.RawMessage `json:"vcardArray"`
}

// Lookup resolves the registrable domain of website and fetches its
// registration. An unregistered domain is an ErrorNotFound.
func (c *Client) Lookup(ctx context.Context, website string) (*models.RegistrationData, error) {
	normalized, err := webutil.NormalizeWebsite(website)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDRDAP, "invalid website", err)
	}
	name, err := webutil.RegistrableDomain(webutil.Host(normalized))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDRDAP, "no registrable domain", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domain/"+name, nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providers.IDRDAP, "build request", err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, providers.FromTransport(providers.IDRDAP, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, providers.FromStatus(providers.IDRDAP, resp.StatusCode)
	}

	var body domainResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDRDAP, "decode response", err)
	}
	data := parse(name, body)
	c.logger.DebugContext(ctx, "domain registration found", "domain", name, "registrar", data.Registrar)
	return data, nil
}

func parse(name string, body domainResponse) *models.RegistrationData {
	data := &models.RegistrationData{Domain: strings.ToLower(name)}
	for _, ev := range body.Events {
		if ev.Date.IsZero() {
			continue
		}
		date := ev.Date.UTC()
		switch ev.Action {
		case "registration":
			data.RegisteredAt = &date
		case "expiration":
			data.ExpiresAt = &date
		}
	}
	for _, e := range body.Entities {
		if !hasRole(e.Roles, "registrar") {
			continue
		}
		data.Registrar = formattedName(e.VCardArray)
		if data.Registrar == "" {
			data.Registrar = e.Handle
		}
		break
	}
	return data
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, want) {
			return true
		}
	}
	return false
}

// formattedName reads the "fn" property of a jCard:
// ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "Domeneshop AS"]]]
func formattedName(vcard []json.RawMessage) string {
	if len(vcard) < 2 {
		return ""
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(vcard[1], &props); err != nil {
		return ""
	}
	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		var key, value string
		if json.Unmarshal(prop[0], &key) != nil || key != "fn" {
			continue
		}
		if json.Unmarshal(prop[3], &value) == nil {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ providers.RegistrationClient = (*Client)(nil)
