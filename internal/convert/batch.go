// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/mdconvert/pkg/types"
)

// History records conversions and answers whether an input is unchanged.
// *store.Store implements it.
type History interface {
	Latest(ctx context.Context, source string) (*types.ConversionRecord, error)
	Record(ctx context.Context, rec types.ConversionRecord) (types.ConversionRecord, error)
}

// BatchOptions controls ConvertBatch.
type BatchOptions struct {
	// OutputDir receives one <name>.md per input.
	OutputDir string

	// Jobs bounds parallel conversions. Values below 1 mean 1.
	Jobs int

	// Frontmatter prepends a YAML header to each output file.
	Frontmatter bool

	// Force converts even when history shows the input is unchanged.
	Force bool

	// History is optional.
	History History
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of inputs processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any input failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// now is replaced in tests.
var now = time.Now

// ConvertBatch converts each input (path or URL) to a Markdown file under
// opts.OutputDir, printing per-input status to w and returning a summary.
func (e *Engine) ConvertBatch(ctx context.Context, inputs []string, opts BatchOptions, w io.Writer) BatchResult {
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	out := &lockedWriter{w: w}

	inputs = dedupe(inputs)
	names := outputNames(inputs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, in := range inputs {
		name := names[i]
		g.Go(func() error {
			status := e.convertOne(gctx, in, name, opts, out)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case types.ConversionDone:
				result.Converted++
			case types.ConversionSkipped:
				result.Skipped++
			case types.ConversionFailed:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(out, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// convertOne converts a single input and writes its Markdown file.
func (e *Engine) convertOne(ctx context.Context, input, name string, opts BatchOptions, w io.Writer) types.ConversionStatus {
	mdPath := filepath.Join(opts.OutputDir, name+".md")

	var sum string
	if !isURL(input) {
		h, err := hashFile(input)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			return types.ConversionFailed
		}
		sum = h
		if !opts.Force && opts.History != nil && unchanged(ctx, opts.History, input, sum, mdPath) {
			fmt.Fprintf(w, "skipped: %s (unchanged)\n", name)
			return types.ConversionSkipped
		}
	}

	rec := types.ConversionRecord{Source: input, SHA256: sum, OutputPath: mdPath}
	status := e.writeOne(ctx, input, mdPath, opts.Frontmatter, &rec)
	rec.Status = status

	if status == types.ConversionFailed {
		fmt.Fprintf(w, "failed:  %s (%s)\n", name, rec.Error)
	} else {
		fmt.Fprintf(w, "converted: %s\n", name)
	}

	if opts.History != nil {
		if _, err := opts.History.Record(ctx, rec); err != nil {
			e.logger.Warn("recording history", "source", input, "error", err)
		}
	}
	return status
}

func (e *Engine) writeOne(ctx context.Context, input, mdPath string, withFrontmatter bool, rec *types.ConversionRecord) types.ConversionStatus {
	fail := func(err error) types.ConversionStatus {
		rec.Error = err.Error()
		return types.ConversionFailed
	}

	if err := os.MkdirAll(filepath.Dir(mdPath), 0o755); err != nil {
		return fail(err)
	}

	res, err := e.Convert(ctx, input, types.StreamInfo{})
	if err != nil {
		return fail(err)
	}
	rec.Converter = res.Converter
	rec.Title = res.Title
	if rec.SHA256 == "" {
		rec.SHA256 = hashString(res.Markdown)
	}

	content := res.Markdown + "\n"
	if withFrontmatter {
		content, err = addFrontmatter(input, res)
		if err != nil {
			return fail(err)
		}
	}
	if err := os.WriteFile(mdPath, []byte(content), 0o644); err != nil {
		return fail(err)
	}
	return types.ConversionDone
}

func unchanged(ctx context.Context, h History, source, sum, mdPath string) bool {
	last, err := h.Latest(ctx, source)
	if err != nil || last == nil || last.SHA256 != sum {
		return false
	}
	_, err = os.Stat(mdPath)
	return err == nil
}

type frontmatter struct {
	Source      string `yaml:"source"`
	Converter   string `yaml:"converter"`
	Title       string `yaml:"title,omitempty"`
	ConvertedAt string `yaml:"converted_at"`
}

// addFrontmatter prepends YAML frontmatter to the converted Markdown content.
func addFrontmatter(source string, res *types.Result) (string, error) {
	fm, err := yaml.Marshal(frontmatter{
		Source:      source,
		Converter:   res.Converter,
		Title:       res.Title,
		ConvertedAt: now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(res.Markdown)
	b.WriteString("\n")
	return b.String(), nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputName derives the output file stem for an input path or URL.
func OutputName(input string) string {
	if isURL(input) {
		if u, err := url.Parse(input); err == nil {
			if u.Scheme == "file" {
				return OutputName(u.Path)
			}
			stem := u.Host + strings.TrimSuffix(u.Path, urlExt(u.Path))
			stem = strings.Trim(unsafeName.ReplaceAllString(stem, "-"), "-.")
			if stem != "" {
				return stem
			}
		}
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputNames assigns each input a stem unique within the run. The first
// input to claim a stem keeps it; later ones get a suffix derived from the
// input itself so names stay stable across runs. Stems are compared
// case-insensitively.
func outputNames(inputs []string) []string {
	taken := make(map[string]bool, len(inputs))
	names := make([]string, len(inputs))
	for i, in := range inputs {
		name := OutputName(in)
		if taken[strings.ToLower(name)] {
			name = name + "-" + hashString(in)[:8]
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// dedupe drops repeated inputs, keeping the first occurrence.
func dedupe(inputs []string) []string {
	seen := make(map[string]bool, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if seen[in] {
			continue
		}
		seen[in] = true
		out = append(out, in)
	}
	return out
}

// urlExt returns the extension of the last URL path segment.
func urlExt(p string) string {
	ext := filepath.Ext(p)
	if strings.Contains(ext, "/") {
		return ""
	}
	return ext
}

func hashFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// lockedWriter serialises status lines from parallel workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
