package parser

import (
	"context"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// HTMLParser converts HTML bytes to Markdown-flavoured text using the same
// converter the teacher's web-fetch tool uses, so headings, links, and
// lists survive normalization as readable plain text. HTML has no page
// concept.
//
// Grounded on manifold's internal/tools/web/fetch.go
// (htmltomarkdown.ConvertString).
type HTMLParser struct{}

func (HTMLParser) Parse(_ context.Context, data []byte) (Result, error) {
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return Result{}, fmt.Errorf("parser: html to markdown: %w", err)
	}
	return Result{Text: md}, nil
}
