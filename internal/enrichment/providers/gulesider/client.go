// Package gulesider finds a company's website in the gulesider.no business
// directory. It is asked only when the registry lists no website.
package gulesider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/domain"
)

// DefaultBaseURL is the public gulesider.no site.
const DefaultBaseURL = "https://www.gulesider.no"

const maxBody = 2 << 20

// Hosts that are never a company's own website: the directory itself,
// maps, app stores and social networks.
var ignoredHosts = []string{
	"gulesider.no", "eniro.no", "eniro.com", "proff.no", "brreg.no",
	"google.com", "google.no", "apple.com", "bing.com",
	"facebook.com", "instagram.com", "linkedin.com", "twitter.com", "x.com",
	"youtube.com", "tiktok.com",
}

// Client implements providers.WebsiteFinder.
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

// FindWebsite loads the directory entry for orgnr. An unlisted company, or
// a listing without a website, yields "".
func (c *Client) FindWebsite(ctx context.Context, orgnr domain.OrgNumber) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", providers.FromTransport(providers.IDGulesider, err)
		}
	}

	endpoint := c.baseURL + "/bedrift/" + orgnr.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorInternal, providers.IDGulesider, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "nb-NO,nb;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", providers.FromTransport(providers.IDGulesider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", providers.FromStatus(providers.IDGulesider, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDGulesider, "parse page", err)
	}
	website := Parse(doc, orgnr.String())
	c.logger.DebugContext(ctx, "directory listing parsed", "orgnr", orgnr.String(), "website", website)
	return website, nil
}

// Parse picks the company website from a listing. A link marked as the
// website wins; otherwise the first external link not pointing at a known
// directory, map or social host is used.
func Parse(doc *goquery.Document, orgnr string) string {
	var marked, fallback string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		website, ok := candidate(href, orgnr)
		if !ok {
			return true
		}
		if isMarkedWebsite(a) {
			marked = website
			return false
		}
		if fallback == "" {
			fallback = website
		}
		return true
	})
	if marked != "" {
		return marked
	}
	return fallback
}

func isMarkedWebsite(a *goquery.Selection) bool {
	if v, _ := a.Attr("itemprop"); v == "url" {
		return true
	}
	for _, attr := range []string{"data-guv-click", "data-testid", "aria-label", "title"} {
		v, _ := a.Attr(attr)
		v = strings.ToLower(v)
		if strings.Contains(v, "website") || strings.Contains(v, "hjemmeside") || strings.Contains(v, "nettside") {
			return true
		}
	}
	text := strings.ToLower(webutil.CleanText(a.Text()))
	return text == "hjemmeside" || text == "nettside" || text == "besøk nettside"
}

func candidate(href, orgnr string) (string, bool) {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return "", false
	}
	if strings.Contains(href, orgnr) {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	host := webutil.BareDomain(u.Hostname())
	for _, ignored := range ignoredHosts {
		if host == ignored || strings.HasSuffix(host, "."+ignored) {
			return "", false
		}
	}
	website, err := webutil.NormalizeWebsite(href)
	if err != nil {
		return "", false
	}
	return website, true
}

var _ providers.WebsiteFinder = (*Client)(nil)
