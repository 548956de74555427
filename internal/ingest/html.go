package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText strips markup from feed entry bodies. Feeds routinely ship
// entity-encoded HTML in description elements, so the input is parsed
// leniently and reduced to its visible text with whitespace collapsed.
func HTMLToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return CollapseWhitespace(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return CollapseWhitespace(raw)
	}

	doc.Find("script, style").Remove()
	return CollapseWhitespace(doc.Text())
}

// CollapseWhitespace trims the string and folds every run of
// whitespace, newlines included, into a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
