package brreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/pkg/domain"
)

const unitJSON = `{
  "organisasjonsnummer": "923609016",
  "navn": "EQUINOR ASA",
  "organisasjonsform": {"kode": "ASA", "beskrivelse": "Allmennaksjeselskap"},
  "hjemmeside": "www.equinor.com",
  "telefon": "51 99 00 00",
  "naeringskode1": {"kode": "06.100", "beskrivelse": "Utvinning av råolje"},
  "antallAnsatte": 21000,
  "harRegistrertAntallAnsatte": true,
  "stiftelsesdato": "1972-09-18",
  "forretningsadresse": {"kommune": "STAVANGER"}
}`

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base url is required")
}

func TestLookupByOrgNumber(t *testing.T) {
	orgnr := domain.MustOrgNumber("923609016")

	t.Run("maps the unit", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/enheter/923609016", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(unitJSON))
		})

		data, err := c.LookupByOrgNumber(context.Background(), orgnr)
		require.NoError(t, err)

		assert.Equal(t, "923609016", data.OrgNumber)
		assert.Equal(t, "EQUINOR ASA", data.Name)
		assert.Equal(t, "ASA", data.OrganizationForm)
		assert.Equal(t, "Utvinning av råolje", data.Industry)
		assert.Equal(t, "06.100", data.IndustryCode)
		assert.Equal(t, "www.equinor.com", data.Website)
		assert.Equal(t, "51 99 00 00", data.Phone)
		assert.Equal(t, "STAVANGER", data.Municipality)
		require.NotNil(t, data.Employees)
		assert.Equal(t, 21000, *data.Employees)
		require.NotNil(t, data.FoundedOn)
		assert.True(t, time.Date(1972, 9, 18, 0, 0, 0, 0, time.UTC).Equal(*data.FoundedOn))
	})

	t.Run("no registered employees means zero", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"organisasjonsnummer":"923609016","navn":"X","harRegistrertAntallAnsatte":false,"registreringsdatoEnhetsregisteret":"2025-11-02"}`))
		})

		data, err := c.LookupByOrgNumber(context.Background(), orgnr)
		require.NoError(t, err)
		require.NotNil(t, data.Employees)
		assert.Equal(t, 0, *data.Employees)
		require.NotNil(t, data.FoundedOn, "registration date is the fallback founding date")
		assert.Equal(t, 2025, data.FoundedOn.Year())
	})

	t.Run("unknown employee count stays unknown", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"organisasjonsnummer":"923609016","navn":"X"}`))
		})

		data, err := c.LookupByOrgNumber(context.Background(), orgnr)
		require.NoError(t, err)
		assert.Nil(t, data.Employees)
		assert.Nil(t, data.FoundedOn)
	})

	t.Run("status mapping", func(t *testing.T) {
		tests := []struct {
			status   int
			category providers.ErrorCategory
		}{
			{http.StatusNotFound, providers.ErrorNotFound},
			{http.StatusGone, providers.ErrorNotFound},
			{http.StatusTooManyRequests, providers.ErrorRateLimited},
			{http.StatusBadGateway, providers.ErrorProviderOutage},
		}
		for _, tt := range tests {
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.LookupByOrgNumber(context.Background(), orgnr)
			require.Error(t, err)
			assert.Equal(t, tt.category, providers.GetCategory(err), "status %d", tt.status)
		}
	})

	t.Run("malformed body is bad data", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := c.LookupByOrgNumber(context.Background(), orgnr)
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})
}

func TestSearchByName(t *testing.T) {
	t.Run("returns candidates", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/enheter", r.URL.Path)
			assert.Equal(t, "Acme Bygg", r.URL.Query().Get("navn"))
			assert.Equal(t, "5", r.URL.Query().Get("size"))
			_, _ = w.Write([]byte(`{"_embedded":{"enheter":[
				{"organisasjonsnummer":"974760673","navn":"ACME BYGG AS"},
				{"organisasjonsnummer":"984851006","navn":"ACME BYGG OG ANLEGG AS"}]}}`))
		})

		got, err := c.SearchByName(context.Background(), " Acme Bygg ")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "974760673", got[0].OrgNumber)
		assert.Equal(t, "ACME BYGG OG ANLEGG AS", got[1].Name)
	})

	t.Run("no hits has no _embedded", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"page":{"totalElements":0}}`))
		})
		got, err := c.SearchByName(context.Background(), "Nothing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty name skips the request", func(t *testing.T) {
		c := newServer(t, func(http.ResponseWriter, *http.Request) {
			t.Fatal("unexpected request")
		})
		got, err := c.SearchByName(context.Background(), "  ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
