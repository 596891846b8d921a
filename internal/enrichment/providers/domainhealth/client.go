// Package domainhealth probes a company website: TLS validity,
// reachability, mail exchangers and the tools visible in its markup.
package domainhealth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
	"salgsmotor/internal/platform/logger"
)

// maxBody caps how much of a homepage is parsed.
const maxBody = 2 << 20

// Resolver is the subset of *net.Resolver the probe uses.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Client implements providers.DomainHealthClient.
type Client struct {
	http      *http.Client
	resolver  Resolver
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

func WithResolver(r Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

// WithAllowPrivate permits loopback and private targets.
func WithAllowPrivate(allow bool) Option {
	return func(c *Client) { c.guard.AllowPrivate = allow }
}

// WithHostLimiter shares per-host pacing with other website probes.
func WithHostLimiter(hl *webutil.HostLimiter) Option {
	return func(c *Client) { c.limiter = hl }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// maxRedirects is how many redirects a probe follows before it settles for
// the last response.
const maxRedirects = 5

// New creates a probe with a 10s HTTP timeout and the system resolver.
// Every redirect target is validated by the same guard as the website
// itself; the default client also refuses unsafe addresses at dial time.
func New(opts ...Option) *Client {
	c := &Client{
		resolver:  net.DefaultResolver,
		userAgent: "Mozilla/5.0",
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.guard.Resolver = c.resolver
	if c.http == nil {
		c.http = c.guard.Client(10*time.Second, maxRedirects)
	} else {
		c.http = c.guard.Guarded(c.http, maxRedirects)
	}
	return c
}

// Fetch probes website. An unreachable site is a result, not an error;
// errors are reserved for unusable input and refused targets.
func (c *Client) Fetch(ctx context.Context, website string) (*models.DomainHealthData, error) {
	normalized, err := webutil.NormalizeWebsite(website)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDDomainHealth, "invalid website", err)
	}
	if err := c.guard.Check(ctx, normalized); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDDomainHealth, "website rejected", err)
	}
	if err := c.limiter.WaitURL(ctx, normalized); err != nil {
		return nil, providers.FromTransport(providers.IDDomainHealth, err)
	}

	data := &models.DomainHealthData{Website: normalized}

	doc, resp, err := c.get(ctx, withScheme(normalized, "https"))
	switch {
	case err == nil:
		valid := true
		data.TLSValid = &valid
		data.Reachable = true
		if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
			expires := resp.TLS.PeerCertificates[0].NotAfter
			data.TLSExpiresAt = &expires
		}
	case ctx.Err() != nil:
		return nil, providers.FromTransport(providers.IDDomainHealth, ctx.Err())
	default:
		c.logger.DebugContext(ctx, "https probe failed", "website", normalized, "error", err)
		var plainErr error
		doc, _, plainErr = c.get(ctx, withScheme(normalized, "http"))
		data.Reachable = plainErr == nil
		// a certificate problem, or a site that only answers plain http,
		// is a known-invalid TLS setup; a dead host leaves TLS unknown
		if isCertError(err) || data.Reachable {
			invalid := false
			data.TLSValid = &invalid
		}
	}

	if doc != nil {
		d := detect(doc)
		data.Technologies = d.Technologies
		data.BookkeepingTools = d.Bookkeeping
		data.BookingTools = d.Booking
		data.NewsletterTools = d.Newsletter
	}
	data.HasMX = c.hasMX(ctx, webutil.Host(normalized))
	return data, nil
}

// get fetches target and parses HTML bodies. Any HTTP response counts as
// reachable; the document is nil for non-HTML or error statuses.
func (c *Client) get(ctx context.Context, target string) (*goquery.Document, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, resp, nil
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp, nil
	}
	return doc, resp, nil
}

func (c *Client) hasMX(ctx context.Context, host string) bool {
	if host == "" {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return false
	}
	records, err := c.resolver.LookupMX(ctx, webutil.BareDomain(host))
	if err != nil {
		c.logger.DebugContext(ctx, "mx lookup failed", "host", host, "error", err)
		return false
	}
	return len(records) > 0
}

func withScheme(raw, scheme string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = scheme
	return u.String()
}

func isCertError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		unknownAuth  x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordHdrErr tls.RecordHeaderError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordHdrErr)
}

var _ providers.DomainHealthClient = (*Client)(nil)
