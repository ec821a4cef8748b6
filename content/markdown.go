// Package content post-processes rendered HTML for the API and CLI front
// ends: format conversion and metadata extraction. The rendering core never
// depends on it.
package content

import (
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var (
	convOnce sync.Once
	conv     *converter.Converter
)

// markdownConverter returns the shared, goroutine-safe converter.
// The base plugin strips script/style/head noise; commonmark renders the
// standard constructs; the table plugin keeps tabular structure readable
// with minimal cell padding.
func markdownConverter() *converter.Converter {
	convOnce.Do(func() {
		conv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		)
	})
	return conv
}

// ToMarkdown converts rendered HTML to Markdown. domain resolves relative
// URLs in links and images so the output is self-contained.
func ToMarkdown(htmlContent, domain string) (string, error) {
	return markdownConverter().ConvertString(htmlContent, converter.WithDomain(domain))
}
