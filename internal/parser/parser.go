// Package parser turns raw uploaded bytes into decoded text for the
// ingestion pipeline, treating each format as a black-box byte->text
// function with optional page segmentation (spec.md §1, §4.6 step 2).
package parser

import (
	"context"
	"fmt"

	"github.com/intelligencedev/ragcore/internal/model"
)

// Page is one page's raw decoded text, used by the chunker's page map.
type Page struct {
	Number int
	Text   string
}

// Result is a parser's output: the full decoded text plus, when the
// format is paginated, the per-page breakdown.
type Result struct {
	Text  string
	Pages []Page // nil when the format has no page concept (txt, html)
}

// Parser decodes raw bytes of one declared file type into text.
type Parser interface {
	Parse(ctx context.Context, data []byte) (Result, error)
}

// ErrUnsupportedType is returned by ForType for a file type with no
// registered parser.
var ErrUnsupportedType = fmt.Errorf("parser: unsupported file type")

// ForType resolves the parser for a declared document file type.
func ForType(ft model.FileType) (Parser, error) {
	switch ft {
	case model.FileTypePDF:
		return PDFParser{}, nil
	case model.FileTypeDOCX:
		return DOCXParser{}, nil
	case model.FileTypeHTML:
		return HTMLParser{}, nil
	case model.FileTypeTXT:
		return TXTParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ft)
	}
}
