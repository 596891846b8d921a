package domainhealth

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetect(t *testing.T) {
	t.Run("bookkeeping and booking embeds", func(t *testing.T) {
		d := detect(parse(t, `<html><body>
			<iframe src="https://acme.simplybook.it/v2/"></iframe>
			<a href="https://fiken.no/regnskap">Regnskap</a>
			<img src="/wp-content/uploads/logo.png">
		</body></html>`))

		assert.Equal(t, []string{"WordPress"}, d.Technologies)
		assert.Equal(t, []string{"Fiken"}, d.Bookkeeping)
		assert.Equal(t, []string{"SimplyBook"}, d.Booking)
		assert.Empty(t, d.Newsletter)
	})

	t.Run("inline scripts count", func(t *testing.T) {
		d := detect(parse(t, `<html><head><script>
			!function(){var s=document.createElement("script");s.src="https://static.klaviyo.com/onsite.js"}();
		</script></head></html>`))

		assert.Equal(t, []string{"Klaviyo"}, d.Newsletter)
	})

	t.Run("generator and markers dedupe", func(t *testing.T) {
		d := detect(parse(t, `<html><head>
			<meta name="generator" content="WordPress 6.5">
			<link href="/wp-includes/css/style.css">
		</head></html>`))

		assert.Equal(t, []string{"WordPress"}, d.Technologies)
	})

	t.Run("plain page finds nothing", func(t *testing.T) {
		d := detect(parse(t, `<html><body><p>Velkommen</p></body></html>`))
		assert.Empty(t, d.Technologies)
		assert.Empty(t, d.Booking)
	})
}

func TestGeneratorName(t *testing.T) {
	assert.Equal(t, "WordPress", generatorName("WordPress 6.5.2"))
	assert.Equal(t, "Hugo", generatorName(" Hugo 0.120 "))
	assert.Equal(t, "", generatorName(""))
}
