package content

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Article reduces rendered HTML to its main readable content using
// go-shiori's readability port, then converts it to Markdown. pageURL is
// used to resolve relative links.
func Article(htmlContent, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("content: parse url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), u)
	if err != nil {
		return "", fmt.Errorf("content: readability extraction: %w", err)
	}

	md, err := ToMarkdown(article.Content, u.Host)
	if err != nil {
		return "", fmt.Errorf("content: markdown conversion: %w", err)
	}
	return md, nil
}
