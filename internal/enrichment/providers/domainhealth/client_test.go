package domainhealth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
)

const homepage = `<html><head>
<meta name="generator" content="WordPress 6.5.2">
<script src="https://www.googletagmanager.com/gtag/js?id=G-1"></script>
</head><body>
<a href="https://timma.no/salong/acme">Bestill time</a>
<form action="https://acme.us1.list-manage.com/subscribe/post"></form>
</body></html>`

type stubResolver struct {
	mx  map[string][]*net.MX
	ips map[string][]net.IPAddr
}

func (r stubResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if v, ok := r.mx[name]; ok {
		return v, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func (r stubResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if v, ok := r.ips[host]; ok {
		return v, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

var publicResolver = stubResolver{
	mx:  map[string][]*net.MX{"example.com": {{Host: "mx.example.com.", Pref: 10}}},
	ips: map[string][]net.IPAddr{"example.com": {{IP: net.ParseIP("93.184.215.14")}}},
}

// pinned sends every connection to addr regardless of the requested host,
// so "example.com" can be served by an httptest server.
func pinned(base *http.Transport, addr string) *http.Client {
	tr := base.Clone()
	dialer := &net.Dialer{}
	tr.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, addr)
	}
	return &http.Client{Transport: tr}
}

func serveHomepage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(homepage))
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("valid certificate", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(serveHomepage))
		t.Cleanup(srv.Close)
		c := New(
			WithHTTPClient(pinned(srv.Client().Transport.(*http.Transport), srv.Listener.Addr().String())),
			WithResolver(publicResolver),
		)

		data, err := c.Fetch(ctx, "Example.com/")
		require.NoError(t, err)

		assert.Equal(t, "https://example.com", data.Website)
		assert.True(t, data.Reachable)
		require.NotNil(t, data.TLSValid)
		assert.True(t, *data.TLSValid)
		assert.NotNil(t, data.TLSExpiresAt)
		assert.False(t, data.TLSInvalid())
		assert.Equal(t, []string{"WordPress", "Google Analytics"}, data.Technologies)
		assert.Equal(t, []string{"Timma"}, data.BookingTools)
		assert.Equal(t, []string{"Mailchimp"}, data.NewsletterTools)
		assert.Empty(t, data.BookkeepingTools)
	})

	t.Run("untrusted certificate is known invalid", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(serveHomepage))
		t.Cleanup(srv.Close)
		c := New(
			WithHTTPClient(pinned(&http.Transport{}, srv.Listener.Addr().String())),
			WithResolver(publicResolver),
		)

		data, err := c.Fetch(ctx, "https://example.com")
		require.NoError(t, err)

		assert.True(t, data.Reachable, "plain http still gets an answer")
		require.NotNil(t, data.TLSValid)
		assert.False(t, *data.TLSValid)
		assert.True(t, data.TLSInvalid())
		assert.True(t, data.HasMX)
	})

	t.Run("plain http only", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(serveHomepage))
		t.Cleanup(srv.Close)
		c := New(
			WithHTTPClient(pinned(&http.Transport{}, srv.Listener.Addr().String())),
			WithResolver(publicResolver),
		)

		data, err := c.Fetch(ctx, "example.com")
		require.NoError(t, err)

		assert.True(t, data.Reachable)
		assert.True(t, data.TLSInvalid())
		assert.Equal(t, []string{"Timma"}, data.BookingTools, "markup is scanned from the http fallback")
	})

	t.Run("dead host leaves tls unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(serveHomepage))
		addr := srv.Listener.Addr().String()
		srv.Close()
		c := New(
			WithHTTPClient(pinned(&http.Transport{}, addr)),
			WithResolver(publicResolver),
		)

		data, err := c.Fetch(ctx, "example.com")
		require.NoError(t, err)

		assert.False(t, data.Reachable)
		assert.Nil(t, data.TLSValid)
		assert.False(t, data.TLSInvalid())
		assert.True(t, data.HasMX)
	})

	t.Run("redirect to an internal address is not followed", func(t *testing.T) {
		var internalHits atomic.Int32
		internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internalHits.Add(1)
			serveHomepage(w, r)
		}))
		t.Cleanup(internal.Close)
		public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, internal.URL+"/admin", http.StatusFound)
		}))
		t.Cleanup(public.Close)

		publicAddr := public.Listener.Addr().String()
		dialer := &net.Dialer{}
		hc := &http.Client{Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if addr == "example.com:80" || addr == "example.com:443" {
					addr = publicAddr
				}
				return dialer.DialContext(ctx, network, addr)
			},
		}}
		c := New(WithHTTPClient(hc), WithResolver(publicResolver))

		data, err := c.Fetch(ctx, "example.com")
		require.NoError(t, err)

		assert.Zero(t, internalHits.Load())
		assert.False(t, data.Reachable)
		assert.Empty(t, data.Technologies)
		assert.Empty(t, data.BookingTools)
	})

	t.Run("default client refuses unsafe addresses at dial time", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			serveHomepage(w, r)
		}))
		t.Cleanup(srv.Close)
		_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
		require.NoError(t, err)
		// the guard's lookup says public, the dialer's own lookup says loopback
		rebinding := stubResolver{ips: map[string][]net.IPAddr{"localhost": {{IP: net.ParseIP("93.184.215.14")}}}}
		c := New(WithResolver(rebinding))

		data, err := c.Fetch(ctx, "http://localhost:"+port)
		require.NoError(t, err)
		assert.False(t, data.Reachable)
		assert.Nil(t, data.TLSValid)
		assert.Zero(t, hits.Load())
	})

	t.Run("private targets are refused", func(t *testing.T) {
		c := New(WithResolver(stubResolver{
			ips: map[string][]net.IPAddr{"intranet.acme.no": {{IP: net.ParseIP("10.0.0.5")}}},
		}))

		_, err := c.Fetch(ctx, "intranet.acme.no")
		require.Error(t, err)
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
		assert.True(t, errors.Is(err, webutil.ErrUnsafeTarget))
	})

	t.Run("loopback allowed when configured", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(serveHomepage))
		t.Cleanup(srv.Close)
		c := New(WithHTTPClient(srv.Client()), WithAllowPrivate(true), WithResolver(stubResolver{}))

		data, err := c.Fetch(ctx, srv.URL)
		require.NoError(t, err)
		assert.True(t, data.Reachable)
		assert.False(t, data.HasMX, "ip literals have no mx")
	})

	t.Run("empty website is bad data", func(t *testing.T) {
		_, err := New().Fetch(ctx, "  ")
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})
}
