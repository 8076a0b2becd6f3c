package transforms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxHTMLBodyBytes = 2 << 20

// PageMeta is the summary HTML extracts from a document.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Links       int    `json:"links"`
}

// ErrHTMLTooLarge is returned for bodies over 2 MiB.
var ErrHTMLTooLarge = errors.New("html body exceeds 2 MiB")

// HTML parses the body as an HTML document and returns its PageMeta. Bodies
// over 2 MiB yield ErrHTMLTooLarge instead of being parsed.
func HTML(body string) any {
	if len(body) > maxHTMLBodyBytes {
		return fmt.Errorf("parse html (%d bytes): %w", len(body), ErrHTMLTooLarge)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return PageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: extract(`meta[property="og:image"]`),
		Links:    doc.Find("a[href]").Length(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
