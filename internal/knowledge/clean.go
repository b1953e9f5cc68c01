package knowledge

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	MinPassageLength = 10
	wipMarker        = "work in progress"
)

// boilerplate is site chrome scraped along with page content.
var boilerplate = regexp.MustCompile(`(?is)(home\s*\(current\)|about us|kmes management.*?policy)`)

var (
	whitespace = regexp.MustCompile(`\s+`)
	htmlTag    = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
)

// CleanText strips markup and boilerplate and collapses whitespace.
func CleanText(text string) string {
	if htmlTag.MatchString(text) {
		text = stripHTML(text)
	}
	text = boilerplate.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Keep reports whether a cleaned candidate is worth indexing.
func Keep(cleaned string) bool {
	if utf8.RuneCountInString(cleaned) < MinPassageLength {
		return false
	}
	return !strings.Contains(strings.ToLower(cleaned), wipMarker)
}

func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("script, style, nav, footer, header").Remove()
	// Block elements would otherwise glue adjacent words together.
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return doc.Text()
}
