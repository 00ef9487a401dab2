// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves remote documents into scoped temporary files so the
// conversion engine can treat them as local byte sources. The response
// metadata (final URL, content type, charset, filename) is carried forward as
// hints.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/mdconvert/internal/httputil"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// Download is a retrieved document materialised on disk. The caller owns the
// file and must call Remove.
type Download struct {
	Path     string
	URL      string
	MIMEType string
	Charset  string
	Filename string
	Size     int64
}

// Remove deletes the temporary file.
func (d *Download) Remove() error {
	if d == nil || d.Path == "" {
		return nil
	}
	err := os.Remove(d.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Extension returns the lowercase extension of the resolved filename.
func (d *Download) Extension() string {
	return strings.ToLower(filepath.Ext(d.Filename))
}

// Fetcher performs HTTP retrieval with retry.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
}

// New creates a Fetcher from the HTTP configuration. A nil client uses a
// fresh http.Client with the configured timeout.
func New(cfg types.HTTPConfig, client *http.Client) *Fetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{
		client:     client,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch downloads rawURL into a temporary file. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/markdown, text/html;q=0.9, */*;q=0.8")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", u.Redacted(), resp.StatusCode)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	d := &Download{URL: final.String()}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			d.MIMEType = mt
			d.Charset = params["charset"]
		}
	}
	d.Filename = filename(resp.Header.Get("Content-Disposition"), final)

	tmp, err := os.CreateTemp("", "mdconvert-fetch-*"+d.Extension())
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	d.Path = tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = d.Remove()
		return nil, fmt.Errorf("reading body of %s: %w", u.Redacted(), err)
	}
	d.Size = n
	return d, nil
}

// filename prefers the Content-Disposition filename, then the last URL path
// segment.
func filename(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return path.Base(strings.ReplaceAll(name, "\\", "/"))
			}
		}
	}
	if u == nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
