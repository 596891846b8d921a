// Package brreg is the registry source: Brønnøysundregistrene's open
// Enhetsregisteret JSON API.
package brreg

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/domain"
)

// DefaultBaseURL is the public Enhetsregisteret API.
const DefaultBaseURL = "https://data.brreg.no/enhetsregisteret/api"

// Client implements providers.RegistryClient.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	searchSize int
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces requests; zero or negative means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithSearchSize caps the number of name-search candidates.
func WithSearchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.searchSize = n
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a registry client against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		searchSize: 5,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// unit is the subset of an Enhetsregisteret "enhet" we use.
type unit struct {
	OrgNumber        string   `json:"organisasjonsnummer"`
	Name             string   `json:"navn"`
	OrganizationForm *code    `json:"organisasjonsform"`
	Website          string   `json:"hjemmeside"`
	Email            string   `json:"epostadresse"`
	Phone            string   `json:"telefon"`
	Mobile           string   `json:"mobil"`
	Employees        *int     `json:"antallAnsatte"`
	HasEmployees     *bool    `json:"harRegistrertAntallAnsatte"`
	FoundedOn        string   `json:"stiftelsesdato"`
	RegisteredOn     string   `json:"registreringsdatoEnhetsregisteret"`
	IndustryCode1    *code    `json:"naeringskode1"`
	BusinessAddress  *address `json:"forretningsadresse"`
}

type code struct {
	Code        string `json:"kode"`
	Description string `json:"beskrivelse"`
}

type address struct {
	Municipality string `json:"kommune"`
}

type searchResponse struct {
	Embedded struct {
		Units []unit `json:"enheter"`
	} `json:"_embedded"`
}

// LookupByOrgNumber fetches one unit. Unknown and deleted units map to
// providers.ErrorNotFound.
func (c *Client) LookupByOrgNumber(ctx context.Context, orgnr domain.OrgNumber) (*models.RegistryData, error) {
	var u unit
	if err := c.getJSON(ctx, c.baseURL+"/enheter/"+orgnr.String(), &u); err != nil {
		return nil, err
	}
	if u.OrgNumber == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDBrreg, "response has no organization number", nil)
	}
	return u.toModel(), nil
}

// SearchByName returns up to the configured number of candidates.
func (c *Client) SearchByName(ctx context.Context, name string) ([]models.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("navn", name)
	q.Set("size", strconv.Itoa(c.searchSize))

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/enheter?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]models.Candidate, 0, len(resp.Embedded.Units))
	for _, u := range resp.Embedded.Units {
		out = append(out, models.Candidate{OrgNumber: u.OrgNumber, Name: u.Name})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return providers.FromTransport(providers.IDBrreg, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, providers.IDBrreg, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return providers.FromTransport(providers.IDBrreg, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "registry request", "url", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusGone:
		return providers.NewProviderError(providers.ErrorNotFound, providers.IDBrreg, "unit is deleted", nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return providers.FromStatus(providers.IDBrreg, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return providers.NewProviderError(providers.ErrorBadData, providers.IDBrreg, "decode response", err)
	}
	return nil
}

func (u unit) toModel() *models.RegistryData {
	data := &models.RegistryData{
		OrgNumber: u.OrgNumber,
		Name:      strings.TrimSpace(u.Name),
		Website:   strings.TrimSpace(u.Website),
		Email:     strings.TrimSpace(u.Email),
		Phone:     firstNonEmpty(u.Phone, u.Mobile),
		Employees: u.Employees,
	}
	if u.OrganizationForm != nil {
		data.OrganizationForm = u.OrganizationForm.Code
	}
	if u.IndustryCode1 != nil {
		data.IndustryCode = u.IndustryCode1.Code
		data.Industry = u.IndustryCode1.Description
	}
	if u.BusinessAddress != nil {
		data.Municipality = u.BusinessAddress.Municipality
	}
	// the API omits antallAnsatte when no employees are registered
	if data.Employees == nil && u.HasEmployees != nil && !*u.HasEmployees {
		zero := 0
		data.Employees = &zero
	}
	for _, d := range []string{u.FoundedOn, u.RegisteredOn} {
		if t, err := time.Parse(time.DateOnly, d); err == nil {
			data.FoundedOn = &t
			break
		}
	}
	return data
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ providers.RegistryClient = (*Client)(nil)

