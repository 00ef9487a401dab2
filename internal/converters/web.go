// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

var wikipediaURL = regexp.MustCompile(`^https?://[a-zA-Z]{2,3}\.wikipedia\.org/`)

// WikipediaConverter keeps only the article body of Wikipedia pages. Pages
// without an article body fall through to the generic HTML converter.
type WikipediaConverter struct {
	html *HTMLConverter
}

// NewWikipedia creates the Wikipedia converter.
func NewWikipedia() *WikipediaConverter {
	return &WikipediaConverter{html: NewHTML()}
}

func (*WikipediaConverter) Name() string { return "wikipedia" }

func (*WikipediaConverter) Accepts(info types.StreamInfo) bool {
	return isHTML(info) && wikipediaURL.MatchString(info.URL)
}

func (w *WikipediaConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	doc, err := parseHTML(src, info)
	if err != nil {
		return nil, err
	}
	content := doc.Find("div#mw-content-text").First()
	if content.Length() == 0 {
		return nil, nil
	}

	title := pageTitle(doc)
	if t := strings.TrimSpace(doc.Find("span.mw-page-title-main").First().Text()); t != "" {
		title = t
	}

	body, err := w.html.toMarkdown(content, info)
	if err != nil {
		return nil, err
	}
	if title != "" {
		body = "# " + title + "\n\n" + body
	}
	return &types.Result{Title: title, Markdown: body}, nil
}

var bingSearchURL = regexp.MustCompile(`^https://www\.bing\.com/search\?q=`)

// BingConverter renders a Bing results page as a list of results with the
// redirect links replaced by their targets.
type BingConverter struct {
	html *HTMLConverter
}

// NewBing creates the Bing search results converter.
func NewBing() *BingConverter {
	return &BingConverter{html: NewHTML()}
}

func (*BingConverter) Name() string { return "bing" }

func (*BingConverter) Accepts(info types.StreamInfo) bool {
	return isHTML(info) && bingSearchURL.MatchString(info.URL)
}

func (b *BingConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	u, err := url.Parse(info.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing search url: %w", err)
	}
	query := u.Query().Get("q")

	doc, err := parseHTML(src, info)
	if err != nil {
		return nil, err
	}

	var results []string
	var convErr error
	doc.Find(".b_algo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			a.SetAttr("href", bingTarget(href))
		})
		text, err := b.html.toMarkdown(s, info)
		if err != nil {
			convErr = err
			return false
		}
		results = append(results, compactLines(text))
		return true
	})
	if convErr != nil {
		return nil, convErr
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## A Bing search for '%s' found the following results:\n\n", query)
	sb.WriteString(strings.Join(results, "\n\n"))
	return &types.Result{Title: pageTitle(doc), Markdown: sb.String()}, nil
}

// bingTarget decodes the destination of a Bing click-tracking link. The u
// parameter carries a two-character prefix followed by unpadded URL-safe
// base64. Other links are returned unchanged.
func bingTarget(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	enc := u.Query().Get("u")
	if len(enc) < 3 {
		return href
	}
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(enc[2:], "="))
	if err != nil {
		return href
	}
	return string(dec)
}

// compactLines trims every line and drops the blank ones.
func compactLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
