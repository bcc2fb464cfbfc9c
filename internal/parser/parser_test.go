package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intelligencedev/ragcore/internal/model"
)

func TestTXTParser(t *testing.T) {
	res, err := TXTParser{}.Parse(context.Background(), []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Text)
	require.Nil(t, res.Pages)
}

func TestHTMLParser(t *testing.T) {
	res, err := HTMLParser{}.Parse(context.Background(), []byte("<h1>Title</h1><p>Body text</p>"))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Title")
	require.Contains(t, res.Text, "Body text")
}

func TestForType(t *testing.T) {
	for _, ft := range []model.FileType{model.FileTypePDF, model.FileTypeDOCX, model.FileTypeHTML, model.FileTypeTXT} {
		p, err := ForType(ft)
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	_, err := ForType(model.FileType("bogus"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}
