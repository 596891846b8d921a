package openai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	goopenai "github.com/sashabaranov/go-openai"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/webutil"
)

const (
	pageTimeout  = 15 * time.Second
	maxRedirects = 5
	maxPageBody  = 2 << 20
	// maxPageText caps the homepage text sent to the model, in runes.
	maxPageText = 8000

	analysisTemperature = 0.5
)

const analysisSystemPrompt = "Du er en hjelpsom forretningsanalytiker."

// textSelector lists the elements whose text describes the business.
const textSelector = "title, h1, h2, h3, p, li"

// AnalyzeWebsite fetches the homepage and asks the model for a short
// assessment of its tone of voice, how clearly it states what the business
// does, and whether it has a clear call to action.
//
// A homepage that cannot be read is reported as bad data, not as an
// outage, so one dead site does not count against the model's breaker.
func (c *Client) AnalyzeWebsite(ctx context.Context, website string) (*models.WebsiteAnalysis, error) {
	text, err := c.homepageText(ctx, website)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: AnalysisPrompt(text)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: analysisTemperature,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "no choices returned", nil)
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "empty completion", nil)
	}
	c.logger.DebugContext(ctx, "website analysed", "website", website, "tokens", resp.Usage.CompletionTokens)
	return &models.WebsiteAnalysis{Summary: summary}, nil
}

func (c *Client) homepageText(ctx context.Context, website string) (string, error) {
	normalized, err := webutil.NormalizeWebsite(website)
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "invalid website", err)
	}
	if err := c.guard.Check(ctx, normalized); err != nil {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "website rejected", err)
	}
	if err := c.limiter.WaitURL(ctx, normalized); err != nil {
		return "", providers.FromTransport(providers.IDOpenAI, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorInternal, providers.IDOpenAI, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.pages.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", providers.FromTransport(providers.IDOpenAI, ctx.Err())
		}
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "homepage unavailable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBody))
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "homepage unavailable: "+resp.Status, nil)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "parse homepage", err)
	}
	text := PageText(doc)
	if text == "" {
		return "", providers.NewProviderError(providers.ErrorBadData, providers.IDOpenAI, "homepage has no text", nil)
	}
	return text, nil
}

// PageText joins the descriptive text of a homepage, capped for the prompt.
func PageText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	var parts []string
	doc.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		if t := webutil.CleanText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(parts, " ")
	if r := []rune(text); len(r) > maxPageText {
		text = string(r[:maxPageText])
	}
	return text
}

// AnalysisPrompt renders the user message for a homepage assessment.
func AnalysisPrompt(pageText string) string {
	var sb strings.Builder
	sb.WriteString("Analyser følgende tekst fra forsiden eller om oss-siden til et norsk selskap. ")
	sb.WriteString("Vurder tonen (for eksempel formell, personlig eller uformell), hvor tydelig det går frem hva ")
	sb.WriteString("selskapet tilbyr, og om siden har en tydelig handlingsoppfordring. ")
	sb.WriteString("Gi én setning for hvert punkt, på norsk.\n\nTekst fra nettsiden:\n---\n")
	sb.WriteString(pageText)
	return sb.String()
}

var _ providers.WebsiteAnalyzer = (*Client)(nil)
