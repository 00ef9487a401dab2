// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// MarkdownConverter passes Markdown through with its frontmatter removed.
// The title comes from the frontmatter, else the first level-one heading.
type MarkdownConverter struct {
	md goldmark.Markdown
}

// NewMarkdown creates the Markdown converter.
func NewMarkdown() *MarkdownConverter {
	return &MarkdownConverter{md: goldmark.New()}
}

func (*MarkdownConverter) Name() string { return "markdown" }

func (*MarkdownConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".md", ".markdown", ".mdown") || info.HasMIMEType("text/markdown", "text/x-markdown")
}

type markdownMeta struct {
	Title string `yaml:"title" toml:"title" json:"title"`
}

func (m *MarkdownConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	raw, err := decode(data, info.Charset)
	if err != nil {
		return nil, err
	}

	var meta markdownMeta
	body, err := frontmatter.Parse(strings.NewReader(raw), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = m.firstHeading(body)
	}
	return &types.Result{Title: title, Markdown: string(body)}, nil
}

// firstHeading returns the text of the first level-one heading in src.
func (m *MarkdownConverter) firstHeading(src []byte) string {
	doc := m.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = nodeText(h, src)
		return ast.WalkStop, nil
	})
	return title
}

// nodeText concatenates the text segments under n.
func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
