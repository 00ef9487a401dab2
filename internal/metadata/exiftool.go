// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata extracts structured metadata from local files by running
// exiftool. Extraction is best-effort enrichment: a missing tool or a failed
// run yields empty Metadata, never an error.
package metadata

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/mdconvert/internal/sysexec"
)

const (
	// EnvToolPath names the environment variable consulted after an
	// explicit override.
	EnvToolPath = "EXIFTOOL_PATH"

	toolName       = "exiftool"
	defaultTimeout = 30 * time.Second
)

// AudioFields is the allow-list for audio files, in rendering order.
var AudioFields = []string{
	"Title",
	"Artist",
	"Author",
	"Band",
	"Album",
	"Genre",
	"Track",
	"DateTimeOriginal",
	"CreateDate",
	"Duration",
}

// ImageFields is the allow-list for images, in rendering order.
var ImageFields = []string{
	"ImageSize",
	"Title",
	"Caption",
	"Description",
	"Keywords",
	"Artist",
	"Author",
	"DateTimeOriginal",
	"CreateDate",
	"GPSPosition",
}

// Metadata maps allow-listed field names to values. Absent fields are
// missing keys.
type Metadata map[string]string

// Source tells how a tool location was found.
type Source string

const (
	SourceNone     Source = ""
	SourceExplicit Source = "explicit"
	SourceEnv      Source = "env"
	SourcePath     Source = "path"
)

// Resolution is the outcome of locating the tool.
type Resolution struct {
	Path   string
	Source Source
}

// Implicit reports whether the tool was found only by a PATH lookup.
func (r Resolution) Implicit() bool { return r.Source == SourcePath }

// Found reports whether a tool location was resolved.
func (r Resolution) Found() bool { return r.Path != "" }

// Resolve locates exiftool: the explicit override first, then EXIFTOOL_PATH,
// then PATH.
func Resolve(override string, exec sysexec.Executor) Resolution {
	if override != "" {
		return Resolution{Path: override, Source: SourceExplicit}
	}
	if env := strings.TrimSpace(os.Getenv(EnvToolPath)); env != "" {
		return Resolution{Path: env, Source: SourceEnv}
	}
	if exec == nil {
		exec = sysexec.Default
	}
	if p, err := exec.LookPath(toolName); err == nil {
		return Resolution{Path: p, Source: SourcePath}
	}
	return Resolution{}
}

// Extractor runs exiftool and keeps only allow-listed fields.
type Extractor struct {
	tool    string
	fields  []string
	exec    sysexec.Executor
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExecutor overrides the process executor.
func WithExecutor(e sysexec.Executor) Option {
	return func(x *Extractor) { x.exec = e }
}

// WithTimeout bounds one tool invocation.
func WithTimeout(d time.Duration) Option {
	return func(x *Extractor) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// NewExtractor creates an extractor for the given tool path and allow-list.
// An empty tool path produces an extractor that always returns no metadata.
func NewExtractor(tool string, fields []string, opts ...Option) *Extractor {
	x := &Extractor{
		tool:    tool,
		fields:  fields,
		exec:    sysexec.Default,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Fields returns the allow-list in rendering order.
func (x *Extractor) Fields() []string { return x.fields }

// Extract runs the tool against path. override, when non-empty, replaces the
// configured tool for this call.
func (x *Extractor) Extract(ctx context.Context, path, override string) Metadata {
	tool := x.tool
	if override != "" {
		tool = override
	}
	if tool == "" {
		return Metadata{}
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	out, err := sysexec.Output(ctx, x.exec, tool, "-S", "-charset", "filename=utf8", "--", path)
	if err != nil {
		x.logger.Debug("metadata extraction failed", "path", path, "error", err)
		return Metadata{}
	}
	return parse(out, x.fields)
}

// parse reads "Tag: value" lines, discarding tags outside fields.
func parse(out []byte, fields []string) Metadata {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	md := Metadata{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, ok := allowed[key]; !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			md[key] = value
		}
	}
	return md
}

// Render writes one "Field: value" line per present field, in order.
func Render(md Metadata, order []string) string {
	var b strings.Builder
	for _, f := range order {
		if v, ok := md[f]; ok {
			b.WriteString(f)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	return b.String()
}
