// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/mdconvert/pkg/types"
)

// memHistory is an in-memory History.
type memHistory struct {
	mu   sync.Mutex
	recs []types.ConversionRecord
}

func (h *memHistory) Latest(_ context.Context, source string) (*types.ConversionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.recs) - 1; i >= 0; i-- {
		if h.recs[i].Source == source && h.recs[i].Status == types.ConversionDone {
			r := h.recs[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (h *memHistory) Record(_ context.Context, rec types.ConversionRecord) (types.ConversionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return rec, nil
}

func batchEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	if err := e.Register(&fakeConverter{name: "text", exts: []string{".txt"}, echo: true}, PriorityGeneric); err != nil {
		t.Fatal(err)
	}
	if err := e.Register(&fakeConverter{name: "bad", exts: []string{".bad"}, err: os.ErrInvalid}, PrioritySpecific); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestConvertBatch(t *testing.T) {
	tmpDir := t.TempDir()
	inDir := filepath.Join(tmpDir, "in")
	outDir := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(inDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"a.txt": "alpha", "b.txt": "beta", "c.bad": "gamma"} {
		if err := os.WriteFile(filepath.Join(inDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	inputs := []string{
		filepath.Join(inDir, "a.txt"),
		filepath.Join(inDir, "b.txt"),
		filepath.Join(inDir, "c.bad"),
	}

	e := batchEngine(t)
	hist := &memHistory{}
	opts := BatchOptions{OutputDir: outDir, Jobs: 2, History: hist}

	var log bytes.Buffer
	result := e.ConvertBatch(context.Background(), inputs, opts, &log)

	if result.Converted != 2 || result.Failed != 1 || result.Skipped != 0 {
		t.Errorf("first run = %+v, want 2 converted, 1 failed", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if !strings.Contains(log.String(), "failed:  c (") {
		t.Errorf("log %q should report the failed input", log.String())
	}
	if !strings.Contains(log.String(), "Batch summary: 2 converted, 0 skipped, 1 failed (total: 3)") {
		t.Errorf("log %q should contain summary line", log.String())
	}
	data, err := os.ReadFile(filepath.Join(outDir, "a.md"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "alpha\n" {
		t.Errorf("a.md = %q, want %q", data, "alpha\n")
	}
	if len(hist.recs) != 3 {
		t.Fatalf("history has %d records, want 3", len(hist.recs))
	}

	// Second run: a unchanged, b modified, c still failing.
	if err := os.WriteFile(inputs[1], []byte("beta v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	log.Reset()
	result = e.ConvertBatch(context.Background(), inputs, opts, &log)

	if result.Converted != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("second run = %+v, want 1 converted, 1 skipped, 1 failed", result)
	}
	if !strings.Contains(log.String(), "skipped: a (unchanged)") {
		t.Errorf("log %q should report skipped input", log.String())
	}

	// Deleting the output forces reconversion.
	if err := os.Remove(filepath.Join(outDir, "a.md")); err != nil {
		t.Fatal(err)
	}
	result = e.ConvertBatch(context.Background(), inputs[:1], opts, &log)
	if result.Converted != 1 {
		t.Errorf("missing output should reconvert, got %+v", result)
	}

	// Force ignores history.
	opts.Force = true
	result = e.ConvertBatch(context.Background(), inputs[:1], opts, &log)
	if result.Converted != 1 {
		t.Errorf("force should reconvert, got %+v", result)
	}
}

func TestConvertBatch_Frontmatter(t *testing.T) {
	old := now
	now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }
	defer func() { now = old }()

	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "note.txt")
	if err := os.WriteFile(in, []byte("# Heading\n\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}

	var log bytes.Buffer
	result := batchEngine(t).ConvertBatch(context.Background(), []string{in},
		BatchOptions{OutputDir: filepath.Join(tmpDir, "md"), Frontmatter: true}, &log)
	if result.Converted != 1 {
		t.Fatalf("result = %+v, log = %s", result, log.String())
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "md", "note.md"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		t.Error("output should start with YAML frontmatter delimiter")
	}
	for _, want := range []string{
		"source: " + in + "\n",
		"converter: text\n",
		"converted_at: \"2026-05-04T03:02:01Z\"\n",
		"---\n\n# Heading\n\nbody\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output %q should contain %q", content, want)
		}
	}
	if strings.Contains(content, "title:") {
		t.Error("empty title should be omitted")
	}
}

func TestConvertBatch_MissingInput(t *testing.T) {
	var log bytes.Buffer
	result := batchEngine(t).ConvertBatch(context.Background(),
		[]string{filepath.Join(t.TempDir(), "gone.txt")},
		BatchOptions{OutputDir: t.TempDir()}, &log)
	if result.Failed != 1 {
		t.Errorf("result = %+v, want 1 failed", result)
	}
}

func TestConvertBatch_SameBaseName(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "out")
	first := filepath.Join(tmpDir, "one", "readme.txt")
	second := filepath.Join(tmpDir, "two", "readme.txt")
	for p, body := range map[string]string{first: "ALPHA", second: "BRAVO"} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	hist := &memHistory{}
	var log bytes.Buffer
	result := batchEngine(t).ConvertBatch(context.Background(), []string{first, second, first},
		BatchOptions{OutputDir: outDir, Jobs: 2, History: hist}, &log)
	if result.Converted != 2 || result.Total() != 2 {
		t.Fatalf("result = %+v, log = %s", result, log.String())
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d output files, want 2", len(entries))
	}

	suffixed := "readme-" + hashString(second)[:8] + ".md"
	wantFiles := map[string]string{
		"readme.md": "ALPHA\n",
		suffixed:    "BRAVO\n",
	}
	for name, want := range wantFiles {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}

	paths := map[string]bool{}
	for _, rec := range hist.recs {
		paths[rec.OutputPath] = true
	}
	if len(paths) != 2 {
		t.Errorf("history output paths = %v, want 2 distinct", paths)
	}
}

func TestOutputNames(t *testing.T) {
	got := outputNames([]string{"a/notes.txt", "b/Notes.md", "c/other.txt"})
	if got[0] != "notes" || got[2] != "other" {
		t.Errorf("unexpected names %v", got)
	}
	if want := "Notes-" + hashString("b/Notes.md")[:8]; got[1] != want {
		t.Errorf("colliding name = %q, want %q", got[1], want)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/data/report.final.docx", want: "report.final"},
		{in: "notes.txt", want: "notes"},
		{in: "https://en.wikipedia.org/wiki/Go_(programming_language)", want: "en.wikipedia.org-wiki-Go_-programming_language"},
		{in: "https://example.com/files/data.csv", want: "example.com-files-data"},
		{in: "https://example.com/", want: "example.com"},
		{in: "file:///tmp/x/song.mp3", want: "song"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
