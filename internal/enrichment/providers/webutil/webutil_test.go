package webutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"www.acme.no", "https://www.acme.no", false},
		{" HTTP://Acme.no/ ", "http://acme.no", false},
		{"https://acme.no/om-oss?utm_source=x#top", "https://acme.no/om-oss", false},
		{"", "", true},
		{"ftp://acme.no", "", true},
		{"https://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeWebsite(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubResolver map[string][]net.IPAddr

func (s stubResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := s[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func TestGuard(t *testing.T) {
	resolver := stubResolver{
		"acme.no":     {{IP: net.ParseIP("185.10.20.30")}},
		"intranet.no": {{IP: net.ParseIP("10.0.0.5")}},
		"mapped.no":   {{IP: net.ParseIP("::ffff:127.0.0.1")}},
	}
	g := Guard{Resolver: resolver}
	ctx := context.Background()

	require.NoError(t, g.Check(ctx, "https://acme.no"))
	assert.ErrorIs(t, g.Check(ctx, "https://intranet.no"), ErrUnsafeTarget)
	assert.ErrorIs(t, g.Check(ctx, "https://mapped.no"), ErrUnsafeTarget)
	assert.ErrorIs(t, g.Check(ctx, "http://127.0.0.1:8080"), ErrUnsafeTarget)
	assert.ErrorIs(t, g.Check(ctx, "http://169.254.169.254/latest"), ErrUnsafeTarget)
	assert.Error(t, g.Check(ctx, "https://unknown.no"))

	open := Guard{AllowPrivate: true}
	require.NoError(t, open.Check(ctx, "http://127.0.0.1:8080"))
}

func TestGuardRedirectsAndDials(t *testing.T) {
	g := Guard{Resolver: stubResolver{"acme.no": {{IP: net.ParseIP("185.10.20.30")}}}}
	policy := g.CheckRedirect(2)

	next, err := http.NewRequest(http.MethodGet, "https://acme.no/om-oss", nil)
	require.NoError(t, err)
	require.NoError(t, policy(next, nil))

	internal, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:8080/admin", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, policy(internal, nil), ErrUnsafeTarget)
	assert.ErrorIs(t, policy(next, []*http.Request{next, next}), http.ErrUseLastResponse)

	assert.ErrorIs(t, g.DialControl("tcp", "127.0.0.1:443", nil), ErrUnsafeTarget)
	assert.ErrorIs(t, g.DialControl("tcp", "[::1]:443", nil), ErrUnsafeTarget)
	assert.ErrorIs(t, g.DialControl("tcp", "10.1.2.3:80", nil), ErrUnsafeTarget)
	assert.NoError(t, g.DialControl("tcp", "185.10.20.30:443", nil))
	assert.NoError(t, Guard{AllowPrivate: true}.DialControl("tcp", "127.0.0.1:443", nil))

	hc := g.Client(time.Second, 2)
	assert.Equal(t, time.Second, hc.Timeout)
	assert.NotNil(t, hc.CheckRedirect)
}

func TestRegistrableDomain(t *testing.T) {
	for host, want := range map[string]string{
		"www.acme.no":          "acme.no",
		"Butikk.Acme.co.uk.":   "acme.co.uk",
		"acme.no":              "acme.no",
		"xn--bkk-sna.acme.com": "acme.com",
	} {
		got, err := RegistrableDomain(host)
		require.NoError(t, err, host)
		assert.Equal(t, want, got, host)
	}
	_, err := RegistrableDomain("127.0.0.1")
	assert.Error(t, err)
	_, err = RegistrableDomain("")
	assert.Error(t, err)
}

func TestHostLimiter(t *testing.T) {
	var nilLimiter *HostLimiter
	require.NoError(t, nilLimiter.WaitURL(context.Background(), "https://acme.no"))

	hl := NewHostLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://acme.no/a"))
	require.NoError(t, hl.WaitURL(ctx, "https://other.no/a"), "hosts are paced independently")
	require.Error(t, hl.WaitURL(ctx, "https://acme.no/b"), "second call to same host must wait past the deadline")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "www.acme.no", Host("https://WWW.acme.no:443/x"))
	assert.Equal(t, "acme.no", BareDomain("www.acme.no"))
	assert.Equal(t, "Sum driftsinntekter", CleanText("  Sum\u00a0driftsinntekter \n"))
}
