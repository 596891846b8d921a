package proff

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/pkg/domain"
)

const accountingPage = `<html><head>
<meta name="description" content="Acme Bygg AS  driver med oppføring av bygninger.">
</head><body>
<a href="mailto:kundeservice@proff.no">Proff</a>
<a href="mailto:post@acmebygg.no?subject=hei">E-post</a>
<table class="AccountFiguresWidget-accountingtable">
  <thead><tr><th>Valuta: NOK</th><th>2024</th><th>2023</th></tr></thead>
  <tbody>
    <tr><th>Sum driftsinntekter</th><td>14 250</td><td>12 900</td></tr>
    <tr><th>Driftsresultat</th><td>1 020</td><td>870</td></tr>
    <tr><th>Resultat før skatt</th><td>−85</td><td>640</td></tr>
  </tbody>
</table>
</body></html>`

const statsPage = `<html><body>
<div class="StatsWidget-cell"><span class="StatsWidget-header">Omsetning</span><span class="StatsWidget-value">640</span></div>
<div class="StatsWidget-cell"><span class="StatsWidget-header">Årsresultat</span><span class="StatsWidget-value">12</span></div>
</body></html>`

func parse(t *testing.T, html string) *models.FinancialData {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return Parse(doc)
}

func TestParse_AccountingTable(t *testing.T) {
	data := parse(t, accountingPage)

	require.NotNil(t, data.Figures)
	assert.Equal(t, 2024, data.Figures.Year)
	require.NotNil(t, data.Figures.Revenue)
	assert.Equal(t, int64(14_250_000), *data.Figures.Revenue)
	require.NotNil(t, data.Figures.ProfitBeforeTax)
	assert.Equal(t, int64(-85_000), *data.Figures.ProfitBeforeTax)

	assert.Equal(t, models.RatingRisk, data.Rating)
	require.Len(t, data.Concerns, 1)
	assert.Contains(t, data.Concerns[0], "negativt resultat")

	assert.Equal(t, "Acme Bygg AS driver med oppføring av bygninger.", data.Description)
	assert.Equal(t, "post@acmebygg.no", data.Email)
}

func TestParse_StatsWidgetFallback(t *testing.T) {
	data := parse(t, statsPage)

	require.NotNil(t, data.Figures)
	assert.Equal(t, int64(640_000), *data.Figures.Revenue)
	assert.Equal(t, int64(12_000), *data.Figures.ProfitBeforeTax)
	assert.Equal(t, models.RatingRisk, data.Rating, "revenue under 1 MNOK")
}

func TestParse_NoFigures(t *testing.T) {
	data := parse(t, `<html><body><h1>Acme</h1></body></html>`)

	assert.Nil(t, data.Figures)
	assert.Equal(t, models.RatingUnknown, data.Rating)
	assert.False(t, data.HasKeyFigures())
}

func TestParseThousands(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1 234", 1_234_000, true},
		{"1\u00a0234", 1_234_000, true},
		{"−56", -56_000, true},
		{"12,5", 12_000, true},
		{"–", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseThousands(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRate(t *testing.T) {
	rev := int64(5_000_000)
	profit := int64(200_000)
	rating, concerns := Rate(&models.KeyFigures{Revenue: &rev, ProfitBeforeTax: &profit})
	assert.Equal(t, models.RatingStable, rating)
	assert.Empty(t, concerns)

	rating, _ = Rate(nil)
	assert.Equal(t, models.RatingUnknown, rating)
}

func TestFetch(t *testing.T) {
	orgnr := domain.MustOrgNumber("974760673")

	t.Run("loads the company page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/company/974760673", r.URL.Path)
			assert.NotEmpty(t, r.UserAgent())
			_, _ = w.Write([]byte(accountingPage))
		}))
		defer srv.Close()

		c, err := New(srv.URL, WithHTTPClient(srv.Client()))
		require.NoError(t, err)

		data, err := c.Fetch(context.Background(), orgnr)
		require.NoError(t, err)
		assert.True(t, data.HasKeyFigures())
	})

	t.Run("unknown company", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.Fetch(context.Background(), orgnr)
		assert.True(t, providers.IsNotFound(err))
	})

	t.Run("outage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.Fetch(context.Background(), orgnr)
		assert.True(t, providers.IsRetryable(err))
	})
}
