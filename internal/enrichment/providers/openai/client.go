// Package openai writes the free-text part of a company's sales note with
// a chat completion model, and has the model assess a company's homepage.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/rules"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
)

const systemPrompt = "Du er en profesjonell salgsrådgiver som skriver korte, effektive tilnærmingskommentarer."

// Client implements providers.AiTextClient and providers.WebsiteAnalyzer.
type Client struct {
	api         *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *slog.Logger

	// homepage fetching for AnalyzeWebsite
	pages     *http.Client
	guard     webutil.Guard
	limiter   *webutil.HostLimiter
	userAgent string
}

// Option configures a Client.
type Option func(*Client, *goopenai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(_ *Client, cfg *goopenai.ClientConfig) {
		if baseURL != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(_ *Client, cfg *goopenai.ClientConfig) { cfg.HTTPClient = hc }
}

func WithModel(model string) Option {
	return func(c *Client, _ *goopenai.ClientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client, _ *goopenai.ClientConfig) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(c *Client, _ *goopenai.ClientConfig) {
		if t > 0 {
			c.temperature = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client, _ *goopenai.ClientConfig) { c.logger = l }
}

// WithPageClient sets the client homepages are fetched with. Redirects are
// still validated by the page guard.
func WithPageClient(hc *http.Client) Option {
	return func(c *Client, _ *goopenai.ClientConfig) { c.pages = hc }
}

// WithPageGuard sets the target guard applied before a homepage is fetched.
func WithPageGuard(g webutil.Guard) Option {
	return func(c *Client, _ *goopenai.ClientConfig) { c.guard = g }
}

// WithHostLimiter shares per-host pacing with the other website probes.
func WithHostLimiter(hl *webutil.HostLimiter) Option {
	return func(c *Client, _ *goopenai.ClientConfig) { c.limiter = hl }
}

func WithUserAgent(ua string) Option {
	return func(c *Client, _ *goopenai.ClientConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client. The API key is required; callers without one
// should leave the AI client unset instead.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	c := &Client{
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		logger:      logger.Discard(),
		userAgent:   "Mozilla/5.0",
	}
	cfg := goopenai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.api = goopenai.NewClientWithConfig(cfg)
	if c.pages == nil {
		c.pages = c.guard.Client(pageTimeout, maxRedirects)
	} else {
		c.pages = c.guard.Guarded(c.pages, maxRedirects)
	}
	return c, nil
}

// GenerateNote asks the model for a short Norwegian approach comment.
func (c *Client) GenerateNote(ctx context.Context, bundle *models.Bundle, recs []rules.Recommendation) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: Prompt(bundle, recs)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "no choices returned", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "empty completion", nil)
	}
	c.logger.DebugContext(ctx, "ai note generated", "orgnr", bundle.OrgNumber, "tokens", resp.Usage.CompletionTokens)
	return text, nil
}

// Prompt renders the user message for one company.
func Prompt(bundle *models.Bundle, recs []rules.Recommendation) string {
	var sb strings.Builder
	sb.WriteString("Du er en erfaren salgsrådgiver. Basert på følgende informasjon om et norsk selskap, ")
	sb.WriteString("skriv en kort og profesjonell tilnærmingskommentar (maks 150 ord) som forklarer ")
	sb.WriteString("hvorfor tjenesten er relevant, hvilke konkrete fordeler de kan få og en naturlig måte å ta kontakt på.\n\n")
	sb.WriteString("Informasjon om selskapet:\n")

	name, industry, employees, website := "Ukjent selskap", "Ukjent bransje", "ukjent", "Ingen nettside"
	if bundle != nil {
		if n := bundle.CompanyName(); n != "" {
			name = n
		}
		if w := bundle.Website(); w != "" {
			website = w
		}
		if r := bundle.Registry; r != nil {
			if r.Industry != "" {
				industry = r.Industry
			}
			if r.Employees != nil {
				employees = strconv.Itoa(*r.Employees)
			}
		}
	}
	fmt.Fprintf(&sb, "Selskap: %s\nBransje: %s\nAntall ansatte: %s\nNettside: %s\n", name, industry, employees, website)
	if bundle != nil {
		if r := bundle.Registry; r != nil {
			if r.OrganizationForm != "" {
				fmt.Fprintf(&sb, "Organisasjonsform: %s\n", r.OrganizationForm)
			}
			if r.Municipality != "" {
				fmt.Fprintf(&sb, "Kommune: %s\n", r.Municipality)
			}
		}
		if f := bundle.Financial; f != nil {
			if f.Rating != "" {
				fmt.Fprintf(&sb, "Økonomi: %s\n", f.Rating)
			}
			if f.Description != "" {
				fmt.Fprintf(&sb, "Beskrivelse: %s\n", f.Description)
			}
		}
		if a := bundle.WebsiteAnalysis; a != nil && a.Summary != "" {
			fmt.Fprintf(&sb, "Vurdering av nettsiden: %s\n", a.Summary)
		}
	}
	if primary, ok := rules.Primary(recs); ok {
		fmt.Fprintf(&sb, "Anbefalt tjeneste: %s\n", primary.Category)
	}
	if notes := rules.Notes(recs); notes != "" {
		sb.WriteString("Funn:\n")
		sb.WriteString(notes)
		sb.WriteString("\n")
	}
	sb.WriteString("\nSkriv svaret på norsk og hold det konkret og salgsorientert.")
	return sb.String()
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		pe := providers.FromStatus(providers.IDOpenAI, apiErr.HTTPStatusCode)
		pe.Underlying = err
		return pe
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		pe := providers.FromStatus(providers.IDOpenAI, reqErr.HTTPStatusCode)
		pe.Underlying = err
		return pe
	}
	return providers.FromTransport(providers.IDOpenAI, err)
}

var _ providers.AiTextClient = (*Client)(nil)
