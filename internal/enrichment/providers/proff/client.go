// Package proff is the financial source: it scrapes the public company
// page on proff.no for the latest key figures.
package proff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/domain"
)

// DefaultBaseURL is the public proff.no site.
const DefaultBaseURL = "https://www.proff.no"

// Figures on the page are in thousands of NOK.
const thousand = 1000

// lowRevenueNOK mirrors the weak-revenue threshold used when rating.
const lowRevenueNOK = 1_000_000

var (
	revenueLabels = []string{"sum driftsinntekter", "driftsinntekter", "omsetning"}
	resultLabels  = []string{"resultat før skatt", "årsresultat"}
)

// Client implements providers.FinancialClient.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces page loads; zero or negative means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a financial client against baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: "Mozilla/5.0",
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch loads the company page and extracts key figures.
func (c *Client) Fetch(ctx context.Context, orgnr domain.OrgNumber) (*models.FinancialData, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, providers.FromTransport(providers.IDProff, err)
		}
	}

	endpoint := c.baseURL + "/company/" + orgnr.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providers.IDProff, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "nb-NO,nb;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, providers.FromTransport(providers.IDProff, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, providers.FromStatus(providers.IDProff, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDProff, "parse page", err)
	}

	data := Parse(doc)
	c.logger.DebugContext(ctx, "financial page parsed", "orgnr", orgnr.String(), "rating", data.Rating)
	return data, nil
}

// Parse extracts key figures, description and contact email from a
// company page. The accounting table is preferred; the stats widget is the
// fallback used on smaller company pages.
func Parse(doc *goquery.Document) *models.FinancialData {
	figures := parseAccountingTable(doc)
	if figures == nil {
		figures = parseStatsWidget(doc)
	}

	data := &models.FinancialData{Figures: figures}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		data.Description = webutil.CleanText(desc)
	}
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		addr := strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if strings.Contains(addr, "@") && !strings.HasSuffix(addr, "@proff.no") {
			data.Email = addr
			return false
		}
		return true
	})

	data.Rating, data.Concerns = Rate(figures)
	return data
}

func parseAccountingTable(doc *goquery.Document) *models.KeyFigures {
	table := doc.Find("table.AccountFiguresWidget-accountingtable").First()
	if table.Length() == 0 {
		return nil
	}

	figures := &models.KeyFigures{}
	table.Find("thead th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if year, err := strconv.Atoi(webutil.CleanText(th.Text())); err == nil {
			figures.Year = year
			return false
		}
		return true
	})

	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var label, value string
		if th := tr.Find("th").First(); th.Length() > 0 {
			label = th.Text()
			value = tr.Find("td").First().Text()
		} else {
			// label is itself the first td; the latest figure follows it
			label = tr.Find("td").Eq(0).Text()
			value = tr.Find("td").Eq(1).Text()
		}
		assignFigure(figures, strings.ToLower(webutil.CleanText(label)), webutil.CleanText(value))
	})

	if figures.Revenue == nil && figures.ProfitBeforeTax == nil {
		return nil
	}
	return figures
}

func parseStatsWidget(doc *goquery.Document) *models.KeyFigures {
	figures := &models.KeyFigures{}
	doc.Find("div.StatsWidget-cell").Each(func(_ int, cell *goquery.Selection) {
		label := strings.ToLower(webutil.CleanText(cell.Find("span.StatsWidget-header").Text()))
		value := webutil.CleanText(cell.Find("span.StatsWidget-value").Text())
		assignFigure(figures, label, value)
	})
	if figures.Revenue == nil && figures.ProfitBeforeTax == nil {
		return nil
	}
	return figures
}

// assignFigure stores value under the first matching label. Earlier labels
// in each list win, so "Sum driftsinntekter" beats "Driftsinntekter".
func assignFigure(f *models.KeyFigures, label, value string) {
	if label == "" {
		return
	}
	if f.Revenue == nil && matchesLabel(label, revenueLabels) {
		if n, ok := ParseThousands(value); ok {
			f.Revenue = &n
		}
		return
	}
	if f.ProfitBeforeTax == nil && matchesLabel(label, resultLabels) {
		if n, ok := ParseThousands(value); ok {
			f.ProfitBeforeTax = &n
		}
	}
}

func matchesLabel(label string, candidates []string) bool {
	for _, c := range candidates {
		if strings.HasPrefix(label, c) {
			return true
		}
	}
	return false
}

// ParseThousands parses a figure shown in thousands of NOK ("1 234",
// "−56", "12,5") and returns whole NOK.
func ParseThousands(s string) (int64, bool) {
	s = strings.NewReplacer("\u2212", "-", "\u2013", "-", " ", "", "\u00a0", "", "\u202f", "").Replace(s)
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * thousand, true
}

// Rate derives the rating category and the list of concerns from key figures.
func Rate(f *models.KeyFigures) (string, []string) {
	if f == nil || (f.Revenue == nil && f.ProfitBeforeTax == nil) {
		return models.RatingUnknown, nil
	}
	var concerns []string
	if f.Revenue != nil && *f.Revenue < lowRevenueNOK {
		concerns = append(concerns, fmt.Sprintf("lav omsetning (%d NOK)", *f.Revenue))
	}
	if f.ProfitBeforeTax != nil && *f.ProfitBeforeTax < 0 {
		concerns = append(concerns, fmt.Sprintf("negativt resultat (%d NOK)", *f.ProfitBeforeTax))
	}
	if len(concerns) > 0 {
		return models.RatingRisk, concerns
	}
	return models.RatingStable, nil
}

var _ providers.FinancialClient = (*Client)(nil)
