package parser

import "context"

// TXTParser decodes plain-text uploads verbatim. Text files have no page
// concept, so Result.Pages is always nil.
type TXTParser struct{}

func (TXTParser) Parse(_ context.Context, data []byte) (Result, error) {
	return Result{Text: string(data)}, nil
}
