package domainhealth

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	pstrings "salgsmotor/pkg/platform/strings"
)

// signature names a tool and the lower-case markers that reveal it in page
// markup (script hosts, link targets, embed code).
type signature struct {
	Name    string
	Markers []string
}

var technologySignatures = []signature{
	{"WordPress", []string{"wp-content/", "wp-includes/"}},
	{"Wix", []string{"wixstatic.com", "wix.com"}},
	{"Squarespace", []string{"squarespace.com", "sqspcdn.com"}},
	{"Shopify", []string{"cdn.shopify.com", "myshopify.com"}},
	{"Webflow", []string{"webflow.com", "website-files.com"}},
	{"Joomla", []string{"/media/jui/", "joomla"}},
	{"Drupal", []string{"/sites/default/files", "drupal.js"}},
	{"Google Analytics", []string{"googletagmanager.com", "google-analytics.com"}},
	{"jQuery", []string{"jquery"}},
	{"Bootstrap", []string{"bootstrap.min"}},
	{"Cloudflare", []string{"cdnjs.cloudflare.com", "cloudflareinsights.com"}},
}

var bookkeepingSignatures = []signature{
	{"Fiken", []string{"fiken.no"}},
	{"Tripletex", []string{"tripletex"}},
	{"Visma", []string{"visma.no", "visma.com", "vismaonline"}},
	{"PowerOffice", []string{"poweroffice"}},
	{"Conta", []string{"conta.no"}},
	{"24SevenOffice", []string{"24sevenoffice"}},
}

var bookingSignatures = []signature{
	{"Timma", []string{"timma.no"}},
	{"Bestille", []string{"bestille.no"}},
	{"Fresha", []string{"fresha.com"}},
	{"Booksy", []string{"booksy.com"}},
	{"SimplyBook", []string{"simplybook"}},
	{"Calendly", []string{"calendly.com"}},
	{"Hano", []string{"hano.no"}},
	{"EasyPractice", []string{"easypractice"}},
}

var newsletterSignatures = []signature{
	{"Mailchimp", []string{"mailchimp.com", "list-manage.com", "chimpstatic.com"}},
	{"Make", []string{"make.as", "makeweb.no"}},
	{"Rule", []string{"rule.io", "rulemailer"}},
	{"Apsis", []string{"apsis"}},
	{"Brevo", []string{"sendinblue", "brevo.com", "sibforms.com"}},
	{"Klaviyo", []string{"klaviyo"}},
	{"MailerLite", []string{"mailerlite"}},
}

// detection is the result of scanning one page.
type detection struct {
	Technologies []string
	Bookkeeping  []string
	Booking      []string
	Newsletter   []string
}

// detect scans a homepage. The haystack is every URL-bearing attribute,
// inline script text and the generator meta tag, lower-cased.
func detect(doc *goquery.Document) detection {
	var sb strings.Builder
	doc.Find("script[src], link[href], a[href], iframe[src], form[action], img[src]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "href", "action"} {
			if v, ok := s.Attr(attr); ok {
				sb.WriteString(strings.ToLower(v))
				sb.WriteByte('\n')
			}
		}
	})
	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(strings.ToLower(s.Text()))
		sb.WriteByte('\n')
	})
	haystack := sb.String()

	var d detection
	if gen, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		if name := generatorName(gen); name != "" {
			d.Technologies = append(d.Technologies, name)
		}
	}
	d.Technologies = pstrings.DedupeAndTrim(append(d.Technologies, match(haystack, technologySignatures)...))
	d.Bookkeeping = match(haystack, bookkeepingSignatures)
	d.Booking = match(haystack, bookingSignatures)
	d.Newsletter = match(haystack, newsletterSignatures)
	return d
}

// generatorName maps "WordPress 6.5.2" to "WordPress".
func generatorName(gen string) string {
	gen = strings.TrimSpace(gen)
	for _, sig := range technologySignatures {
		if strings.HasPrefix(strings.ToLower(gen), strings.ToLower(sig.Name)) {
			return sig.Name
		}
	}
	if fields := strings.Fields(gen); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func match(haystack string, sigs []signature) []string {
	var found []string
	for _, sig := range sigs {
		if slices.ContainsFunc(sig.Markers, func(m string) bool { return strings.Contains(haystack, m) }) {
			found = append(found, sig.Name)
		}
	}
	return found
}
