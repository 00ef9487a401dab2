// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

var htmlExtensions = []string{".html", ".htm", ".xhtml"}
var htmlMIMETypes = []string{"text/html", "application/xhtml+xml"}

func isHTML(info types.StreamInfo) bool {
	return info.HasExtension(htmlExtensions...) || info.HasMIMEType(htmlMIMETypes...)
}

// HTMLConverter sanitises an HTML page and converts its body to Markdown.
// It is safe for concurrent use.
type HTMLConverter struct {
	policy *bluemonday.Policy
}

// NewHTML creates the generic HTML converter.
func NewHTML() *HTMLConverter {
	return &HTMLConverter{policy: htmlPolicy()}
}

// htmlPolicy allows common formatting and strips scripts, event handlers, and
// javascript: URLs.
func htmlPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	return p
}

func (*HTMLConverter) Name() string { return "html" }

func (*HTMLConverter) Accepts(info types.StreamInfo) bool { return isHTML(info) }

func (h *HTMLConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	doc, err := parseHTML(src, info)
	if err != nil {
		return nil, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	text, err := h.toMarkdown(body, info)
	if err != nil {
		return nil, err
	}
	return &types.Result{Title: pageTitle(doc), Markdown: text}, nil
}

// toMarkdown sanitises the inner HTML of sel and converts it. Relative links
// resolve against the host of info.URL.
func (h *HTMLConverter) toMarkdown(sel *goquery.Selection, info types.StreamInfo) (string, error) {
	inner, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("serialising html: %w", err)
	}
	clean := h.policy.Sanitize(inner)

	out, err := md.NewConverter(domainOf(info.URL), true, nil).ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return out, nil
}

// parseHTML decodes src using the charset hint and drops non-content nodes.
func parseHTML(src *convert.Source, info types.StreamInfo) (*goquery.Document, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc, nil
}

func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func domainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
