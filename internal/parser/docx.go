package parser

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DOCXParser extracts text from Word documents. nguyenthenguyen/docx only
// reads from a file path (it targets template replacement, not extraction),
// so the uploaded bytes are staged to a temp file first. GetContent returns
// the raw word/document.xml body, which this parser strips of XML tags and
// reflows paragraph breaks from <w:p> boundaries. DOCX has no page concept
// exposed by this library, so Result.Pages is nil.
type DOCXParser struct{}

var (
	docxParaRe = regexp.MustCompile(`</w:p>`)
	docxTagRe  = regexp.MustCompile(`<[^>]+>`)
)

func (DOCXParser) Parse(_ context.Context, data []byte) (Result, error) {
	tmp, err := os.CreateTemp("", "ragcore-upload-*.docx")
	if err != nil {
		return Result{}, fmt.Errorf("parser: stage docx: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return Result{}, fmt.Errorf("parser: stage docx: %w", err)
	}

	r, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return Result{}, fmt.Errorf("parser: open docx: %w", err)
	}
	defer r.Close()

	raw := r.Editable().GetContent()
	withBreaks := docxParaRe.ReplaceAllString(raw, "\n")
	text := docxTagRe.ReplaceAllString(withBreaks, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return Result{Text: text}, nil
}
