// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// RSSConverter renders RSS and Atom feeds. Generic XML that is not a feed is
// declined so later converters can try it.
type RSSConverter struct {
	html *HTMLConverter
}

// NewRSS creates the feed converter.
func NewRSS() *RSSConverter {
	return &RSSConverter{html: NewHTML()}
}

func (*RSSConverter) Name() string { return "rss" }

func (*RSSConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".rss", ".atom", ".xml") ||
		info.HasMIMEType("application/rss+xml", "application/atom+xml", "application/xml", "text/xml")
}

func (r *RSSConverter) Convert(ctx context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	f, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	var b strings.Builder
	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n", feed.Title)
	}
	if feed.Description != "" {
		b.WriteString(r.fragment(feed.Description, info))
		b.WriteString("\n")
	}
	for _, item := range feed.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.Title != "" {
			fmt.Fprintf(&b, "\n## %s\n", item.Title)
		}
		if item.PublishedParsed != nil {
			fmt.Fprintf(&b, "Published on: %s\n", item.PublishedParsed.Format(time.RFC1123Z))
		} else if item.Published != "" {
			fmt.Fprintf(&b, "Published on: %s\n", item.Published)
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "Link: %s\n", item.Link)
		}
		content := item.Content
		if content == "" {
			content = item.Description
		}
		if content != "" {
			b.WriteString(r.fragment(content, info))
			b.WriteString("\n")
		}
	}
	return &types.Result{Title: feed.Title, Markdown: b.String()}, nil
}

// fragment converts an HTML fragment from a feed field, falling back to the
// raw text when conversion fails.
func (r *RSSConverter) fragment(s string, info types.StreamInfo) string {
	out, err := md.NewConverter(domainOf(info.URL), true, nil).ConvertString(r.html.policy.Sanitize(s))
	if err != nil {
		return s
	}
	return out
}
