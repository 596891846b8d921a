// Package webutil holds the HTTP plumbing shared by the scraping sources:
// website normalisation, target guarding, per-host pacing and text cleanup.
package webutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ErrUnsafeTarget means the website resolves to an address we refuse to probe.
var ErrUnsafeTarget = errors.New("refusing to probe private or loopback address")

// NormalizeWebsite turns a registry website value ("www.acme.no",
// "http://Acme.no/") into a canonical URL with https as default scheme.
func NormalizeWebsite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty website")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse website %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " @") {
		return "", fmt.Errorf("website %q has no host", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = ""
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String(), nil
}

// Host returns the lower-cased host name of a URL, without port.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// BareDomain strips a leading "www." from a host.
func BareDomain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// RegistrableDomain returns the domain a registrar sells for host:
// "www.butikk.acme.co.uk" gives "acme.co.uk".
func RegistrableDomain(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", errors.New("empty host")
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return "", fmt.Errorf("%s is an address, not a domain", host)
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// IPResolver is the subset of *net.Resolver the guard needs.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard refuses websites that resolve to loopback, private, link-local or
// unspecified addresses. Registry data is user-supplied, so a website value
// must not be able to point the probe at internal infrastructure.
type Guard struct {
	Resolver     IPResolver
	AllowPrivate bool
}

// Check resolves the host of website and validates every address.
func (g Guard) Check(ctx context.Context, website string) error {
	if g.AllowPrivate {
		return nil
	}
	host := Host(website)
	if host == "" {
		return fmt.Errorf("website %q has no host", website)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr)
	}
	resolver := g.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		addr, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		if err := checkAddr(addr.Unmap()); err != nil {
			return err
		}
	}
	return nil
}

// CheckRedirect is an http.Client redirect policy: it stops following after
// maxHops and runs Check on every redirect target, so a public site cannot
// bounce the probe onto an internal address.
func (g Guard) CheckRedirect(maxHops int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return http.ErrUseLastResponse
		}
		return g.Check(req.Context(), req.URL.String())
	}
}

// DialControl validates the address a connection is about to be made to.
// It runs after name resolution, so it also covers hosts that resolve
// differently between Check and the request.
func (g Guard) DialControl(_, address string, _ syscall.RawConn) error {
	if g.AllowPrivate {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsafeTarget, address)
	}
	return checkAddr(ap.Addr().Unmap())
}

// Transport returns a transport whose dialer applies DialControl.
func (g Guard) Transport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   g.DialControl,
	}
	tr.DialContext = dialer.DialContext
	return tr
}

// Client returns an HTTP client for probing websites: guarded dials,
// guarded redirects (at most maxHops) and the given timeout.
func (g Guard) Client(timeout time.Duration, maxHops int) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		Transport:     g.Transport(),
		CheckRedirect: g.CheckRedirect(maxHops),
	}
}

// Guarded returns a shallow copy of hc whose redirects are validated by g.
// The transport is left as is.
func (g Guard) Guarded(hc *http.Client, maxHops int) *http.Client {
	cp := *hc
	cp.CheckRedirect = g.CheckRedirect(maxHops)
	return &cp
}

func checkAddr(addr netip.Addr) error {
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrUnsafeTarget, addr)
	}
	return nil
}
