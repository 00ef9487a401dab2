// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements the conversion dispatch engine. It normalises
// every input (local path, byte stream, remote URL) into a local Source,
// tries registered converters in priority order until one produces a
// result, and normalises the resulting Markdown. It also hosts the archive
// converter, which re-enters the engine for each entry, and batch
// conversion with on-disk output.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/mdconvert/internal/fetch"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// Engine dispatches inputs to converters. It is safe for concurrent use once
// registration is complete.
type Engine struct {
	registry *Registry
	fetcher  *fetch.Fetcher
	archive  types.ArchiveConfig
	styleMap map[string]string
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFetcher sets the retriever used for remote inputs.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithArchiveLimits bounds archive expansion.
func WithArchiveLimits(c types.ArchiveConfig) Option {
	return func(e *Engine) { e.archive = c }
}

// WithStyleMap sets the default style directives passed to converters when
// a request carries none.
func WithStyleMap(m map[string]string) Option {
	return func(e *Engine) { e.styleMap = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine with an empty registry.
func New(opts ...Option) *Engine {
	defaults := types.DefaultConfig()
	e := &Engine{
		registry: &Registry{},
		archive:  defaults.Archive,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.fetcher == nil {
		e.fetcher = fetch.New(defaults.HTTP, nil)
	}
	return e
}

// Register adds a converter. It fails once dispatch has started.
func (e *Engine) Register(c Converter, p Priority) error {
	return e.registry.Register(c, p)
}

// Converters returns the registered converter names in attempt order.
func (e *Engine) Converters() []string {
	return e.registry.Names()
}

// Convert treats input as a URL when it has an http, https, or file scheme
// and as a local path otherwise.
func (e *Engine) Convert(ctx context.Context, input string, info types.StreamInfo) (*types.Result, error) {
	if isURL(input) {
		return e.ConvertURL(ctx, input, info)
	}
	return e.ConvertPath(ctx, input, info)
}

// ConvertPath converts a local file.
func (e *Engine) ConvertPath(ctx context.Context, path string, info types.StreamInfo) (*types.Result, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("reading input: %s is a directory", path)
	}

	if info.LocalPath == "" {
		info.LocalPath = path
	}
	if info.Filename == "" {
		info.Filename = filepath.Base(path)
	}
	if info.Extension == "" {
		info.Extension = filepath.Ext(path)
	}
	return e.dispatch(ctx, &Source{Path: path}, info)
}

// ConvertStream converts the bytes read from r. The stream is materialised
// to a temporary file that is removed before returning.
func (e *Engine) ConvertStream(ctx context.Context, r io.Reader, info types.StreamInfo) (*types.Result, error) {
	tmp, err := os.CreateTemp("", "mdconvert-stream-*"+streamSuffix(info))
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("buffering stream: %w", err)
	}
	return e.dispatch(ctx, &Source{Path: tmp.Name()}, info)
}

// streamSuffix names the buffered stream after its extension hint, or the
// extension registered for its MIME hint. Some backends infer the format from
// the file name.
func streamSuffix(info types.StreamInfo) string {
	if ext := info.NormalizedExtension(); ext != "" {
		return ext
	}
	if mt := info.BaseMIMEType(); mt != "" {
		if m := mimetype.Lookup(mt); m != nil {
			return m.Extension()
		}
	}
	return ""
}

// ConvertURL retrieves rawURL and converts the response. The URL and the
// response metadata are carried as hints; explicit hints in info win.
func (e *Engine) ConvertURL(ctx context.Context, rawURL string, info types.StreamInfo) (*types.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "file" {
		return e.ConvertPath(ctx, u.Path, info)
	}

	d, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := d.Remove(); err != nil {
			e.logger.Warn("removing downloaded file", "path", d.Path, "error", err)
		}
	}()

	if info.URL == "" {
		info.URL = d.URL
	}
	if info.MIMEType == "" {
		info.MIMEType = d.MIMEType
	}
	if info.Charset == "" {
		info.Charset = d.Charset
	}
	if info.Filename == "" {
		info.Filename = d.Filename
	}
	if info.Extension == "" {
		info.Extension = d.Extension()
	}
	return e.dispatch(ctx, &Source{Path: d.Path}, info)
}

// dispatch runs the candidate loop over each hint guess.
func (e *Engine) dispatch(ctx context.Context, src *Source, info types.StreamInfo) (*types.Result, error) {
	if info.StyleMap == nil {
		info.StyleMap = e.styleMap
	}
	candidates := e.registry.Candidates()

	for _, guess := range guesses(src, info) {
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !c.Accepts(guess) {
				continue
			}

			res, err := c.Convert(ctx, src, guess)
			if err != nil {
				e.logger.Debug("converter failed",
					"converter", c.Name(), "extension", guess.NormalizedExtension(),
					"mime", guess.BaseMIMEType(), "outcome", "failed", "error", err)
				return nil, &ConversionError{Converter: c.Name(), Source: info.DisplayName(), Err: err}
			}
			if res == nil {
				e.logger.Debug("converter not applicable",
					"converter", c.Name(), "extension", guess.NormalizedExtension(),
					"mime", guess.BaseMIMEType(), "outcome", "not_applicable")
				continue
			}

			e.logger.Debug("converter succeeded",
				"converter", c.Name(), "extension", guess.NormalizedExtension(),
				"mime", guess.BaseMIMEType(), "outcome", "converted")
			out := *res
			out.Markdown = Normalize(out.Markdown)
			out.Title = strings.TrimSpace(out.Title)
			if out.Converter == "" {
				out.Converter = c.Name()
			}
			return &out, nil
		}
	}

	return nil, fmt.Errorf("%w: %s (extension %q, mime %q)",
		ErrUnsupportedFormat, info.DisplayName(), info.NormalizedExtension(), info.BaseMIMEType())
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Normalize trims the body, strips trailing whitespace on each line, and
// collapses runs of blank lines.
func Normalize(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = trailingSpace.ReplaceAllString(md, "\n")
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://")
}
