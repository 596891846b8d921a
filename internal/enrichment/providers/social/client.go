// Package social finds the social network profiles a company links to from
// its own homepage.
package social

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

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
)

const maxBody = 2 << 20

// Network names as stored in models.SocialData.Profiles.
const (
	NetworkLinkedIn  = "linkedin"
	NetworkFacebook  = "facebook"
	NetworkInstagram = "instagram"
	NetworkX         = "x"
	NetworkYouTube   = "youtube"
	NetworkTikTok    = "tiktok"
)

var networkHosts = map[string]string{
	"linkedin.com":  NetworkLinkedIn,
	"facebook.com":  NetworkFacebook,
	"fb.com":        NetworkFacebook,
	"instagram.com": NetworkInstagram,
	"twitter.com":   NetworkX,
	"x.com":         NetworkX,
	"youtube.com":   NetworkYouTube,
	"tiktok.com":    NetworkTikTok,
}

// share and intent links point at the network, not at the company
var ignoredSegments = map[string]bool{
	"sharer": true, "sharer.php": true, "share": true, "share.php": true,
	"intent": true, "dialog": true, "plugins": true, "tr": true,
}

// Client implements providers.SocialClient.
type Client struct {
	http      *http.Client
	guard     webutil.Guard
	limiter   *webutil.HostLimiter
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGuard sets the target guard applied before every fetch.
func WithGuard(g webutil.Guard) Option {
	return func(c *Client) { c.guard = g }
}

func WithHostLimiter(hl *webutil.HostLimiter) Option {
	return func(c *Client) { c.limiter = hl }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

const maxRedirects = 5

// New creates a client. Redirects are re-validated by the guard; without
// WithHTTPClient the client also refuses unsafe addresses at dial time.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent: "Mozilla/5.0",
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = c.guard.Client(10*time.Second, maxRedirects)
	} else {
		c.http = c.guard.Guarded(c.http, maxRedirects)
	}
	return c
}

// Fetch loads the homepage and returns one profile URL per network. A page
// without profile links yields an empty, non-nil result.
func (c *Client) Fetch(ctx context.Context, website string) (*models.SocialData, error) {
	normalized, err := webutil.NormalizeWebsite(website)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDSocial, "invalid website", err)
	}
	if err := c.guard.Check(ctx, normalized); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDSocial, "website rejected", err)
	}
	if err := c.limiter.WaitURL(ctx, normalized); err != nil {
		return nil, providers.FromTransport(providers.IDSocial, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providers.IDSocial, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, webutil.ErrUnsafeTarget) {
			return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDSocial, "redirect rejected", err)
		}
		return nil, providers.FromTransport(providers.IDSocial, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, providers.FromStatus(providers.IDSocial, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDSocial, "parse homepage", err)
	}
	data := Parse(doc)
	c.logger.DebugContext(ctx, "social profiles found", "website", normalized, "count", len(data.Profiles))
	return data, nil
}

// Parse collects profile links from a homepage. The first link per network wins.
func Parse(doc *goquery.Document) *models.SocialData {
	data := &models.SocialData{Profiles: map[string]string{}}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		network, profile, ok := classify(href)
		if !ok {
			return
		}
		if _, seen := data.Profiles[network]; !seen {
			data.Profiles[network] = profile
		}
	})
	return data
}

func classify(href string) (network, profile string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "no.")
	network, ok = networkHosts[host]
	if !ok {
		return "", "", false
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		return "", "", false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if ignoredSegments[strings.ToLower(first)] {
		return "", "", false
	}
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = path
	return network, u.String(), true
}

var _ providers.SocialClient = (*Client)(nil)
