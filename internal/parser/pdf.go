package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text per page using ledongthuc/pdf, concatenating
// pages with a blank line between them. Page texts are handed to the
// chunker's substring-based page map (Open Question 2 of spec.md).
//
// Grounded on the pdf.Open/reader.GetPlainText usage in the retrieval
// pack's PDF ingestion (other_examples' OpenEye internal/rag retriever),
// widened here to per-page extraction via Reader.Page/NumPage.
type PDFParser struct{}

func (PDFParser) Parse(_ context.Context, data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("parser: open pdf: %w", err)
	}

	var (
		all   strings.Builder
		pages []Page
	)
	n := reader.NumPage()
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			continue // a single unreadable page shouldn't fail the whole document
		}
		if i > 1 {
			all.WriteString("\n\n")
		}
		all.WriteString(text)
		pages = append(pages, Page{Number: i, Text: text})
	}
	return Result{Text: all.String(), Pages: pages}, nil
}

func pageText(page pdf.Page) (string, error) {
	content, err := page.GetPlainText(nil)
	if err == nil {
		return content, nil
	}
	// Fall back to the row-based extractor some ledongthuc/pdf versions
	// require for pages whose content stream confuses GetPlainText.
	rows, rerr := page.GetTextByRow()
	if rerr != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			b.WriteString(word.S)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
