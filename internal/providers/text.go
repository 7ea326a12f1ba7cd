package providers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "br, p, li, div, tr, td, h1, h2, h3, h4, h5, h6"

// PlainText strips markup from a job description and collapses whitespace.
// Input that does not parse as HTML is returned with whitespace collapsed.
func PlainText(markup string) string {
	if !strings.Contains(markup, "<") {
		return strings.Join(strings.Fields(markup), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Join(strings.Fields(markup), " ")
	}

	doc.Find("script, style, noscript").Remove()
	// Keep words from adjacent blocks apart.
	doc.Find(blockElements).AfterHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}
