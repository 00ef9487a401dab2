// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// TextConverter passes plain text through, decoded to UTF-8.
type TextConverter struct{}

// NewText creates the plain-text converter.
func NewText() *TextConverter { return &TextConverter{} }

func (TextConverter) Name() string { return "text" }

func (TextConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".txt", ".text", ".log") || info.HasMIMEType("text/")
}

func (TextConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return nil, err
	}
	return &types.Result{Markdown: text}, nil
}

// decode converts data from charset to UTF-8. Without a charset, valid UTF-8
// (with or without a BOM) passes through and anything else is read as
// Windows-1252.
func decode(data []byte, charset string) (string, error) {
	var enc encoding.Encoding
	switch cs := strings.ToLower(strings.TrimSpace(charset)); {
	case cs == "" || cs == "utf-8" || cs == "utf8":
		if utf8.Valid(data) {
			enc = unicode.UTF8BOM
		} else {
			enc = charmap.Windows1252
		}
	default:
		e, err := htmlindex.Get(cs)
		if err != nil {
			return "", fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		enc = e
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s text: %w", charset, err)
	}
	return string(out), nil
}
