package feed

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// summaryText flattens a feed entry description to plain trimmed text.
// Descriptions frequently arrive as HTML fragments.
func summaryText(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}
	return strings.TrimSpace(doc.Text())
}

// firstImageSrc pulls the first <img> src out of an HTML description,
// resolved against the feed base. Used when a feed carries no enclosure or
// image element.
func firstImageSrc(base *url.URL, description string) string {
	if !strings.Contains(description, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}

	src, ok := doc.Find("img").First().Attr("src")
	if !ok {
		return ""
	}
	return resolveURL(base, src)
}
