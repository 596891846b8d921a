package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/rules"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  Hei Acme! Vi ser at dere mangler nettside.  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 12, "total_tokens": 132}
}`

func testBundle() *models.Bundle {
	employees := 3
	return &models.Bundle{
		OrgNumber: "923609016",
		Registry: &models.RegistryData{
			OrgNumber: "923609016",
			Name:      "ACME BYGG AS",
			Industry:  "Oppføring av bygninger",
			Employees: &employees,
		},
		Financial: &models.FinancialData{Rating: models.RatingRisk},
	}
}

var testRecs = []rules.Recommendation{
	{RuleID: "no_website", Category: "Webdesign", Priority: 2, Rationale: "Selskapet har ingen registrert nettside."},
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("sk-test", WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(" ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestGenerateNote(t *testing.T) {
	t.Run("sends the prompt and trims the answer", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body struct {
				Model     string `json:"model"`
				MaxTokens int    `json:"max_tokens"`
				Messages  []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, DefaultModel, body.Model)
			assert.Equal(t, DefaultMaxTokens, body.MaxTokens)
			if assert.Len(t, body.Messages, 2) {
				assert.Equal(t, "system", body.Messages[0].Role)
				assert.Contains(t, body.Messages[1].Content, "ACME BYGG AS")
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completion))
		})

		note, err := c.GenerateNote(context.Background(), testBundle(), testRecs)
		require.NoError(t, err)
		assert.Equal(t, "Hei Acme! Vi ser at dere mangler nettside.", note)
	})

	t.Run("rejected key is an authentication error", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
		})

		_, err := c.GenerateNote(context.Background(), testBundle(), testRecs)
		require.Error(t, err)
		assert.Equal(t, providers.ErrorAuthentication, providers.GetCategory(err))
	})

	t.Run("empty completion is bad data", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
		})

		_, err := c.GenerateNote(context.Background(), testBundle(), nil)
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})
}

func TestPrompt(t *testing.T) {
	p := Prompt(testBundle(), testRecs)

	assert.Contains(t, p, "Selskap: ACME BYGG AS")
	assert.Contains(t, p, "Bransje: Oppføring av bygninger")
	assert.Contains(t, p, "Antall ansatte: 3")
	assert.Contains(t, p, "Nettside: Ingen nettside")
	assert.Contains(t, p, "Økonomi: Risiko")
	assert.Contains(t, p, "Anbefalt tjeneste: Webdesign")
	assert.Contains(t, p, "- Webdesign: Selskapet har ingen registrert nettside.")

	t.Run("registry details, profile and homepage assessment", func(t *testing.T) {
		b := testBundle()
		b.Registry.OrganizationForm = "AS"
		b.Registry.Municipality = "OSLO"
		b.Financial.Description = "Acme Bygg AS driver med oppføring av bygninger."
		b.WebsiteAnalysis = &models.WebsiteAnalysis{Summary: "Tonen er personlig."}

		p := Prompt(b, testRecs)
		assert.Contains(t, p, "Organisasjonsform: AS")
		assert.Contains(t, p, "Kommune: OSLO")
		assert.Contains(t, p, "Beskrivelse: Acme Bygg AS driver med oppføring av bygninger.")
		assert.Contains(t, p, "Vurdering av nettsiden: Tonen er personlig.")
	})

	t.Run("nil bundle uses placeholders", func(t *testing.T) {
		p := Prompt(nil, nil)
		assert.Contains(t, p, "Selskap: Ukjent selskap")
		assert.NotContains(t, p, "Anbefalt tjeneste")
	})
}
