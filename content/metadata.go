package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/renderbridge/models"
)

// Metadata extracts page-level metadata from rendered HTML. Best-effort:
// unparsable HTML yields empty metadata rather than an error, since the
// render itself already succeeded.
func Metadata(htmlContent, sourceURL string) models.PageMetadata {
	meta := models.PageMetadata{SourceURL: sourceURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if meta.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			meta.Title = strings.TrimSpace(og)
		}
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	} else if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(og)
	}

	return meta
}
