// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mdconvert/internal/capability"
	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/sysexec"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// fakeRuntime records container runs and answers with canned output.
type fakeRuntime struct {
	out   string
	err   error
	image string
	args  []string
	stdin string
}

func (f *fakeRuntime) Name() string                              { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool            { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return nil }

func (f *fakeRuntime) Run(_ context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.image = image
	f.args = args
	b, _ := io.ReadAll(stdin)
	f.stdin = string(b)
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(stdout, f.out)
	return err
}

func TestPDFConverter(t *testing.T) {
	exec := &sysexec.Fake{
		Handlers: map[string]func([]string, io.Reader, io.Writer) error{
			"pdftotext": func(args []string, _ io.Reader, w io.Writer) error {
				_, err := io.WriteString(w, "Page one\fPage two\n")
				return err
			},
		},
	}
	deps := Deps{
		Config: types.DefaultConfig(),
		Exec:   exec,
		Caps:   capability.Set{PDFText: true, PDFTextBinary: "/usr/bin/pdftotext"},
	}
	p := writeFile(t, "paper.pdf", []byte("%PDF-1.7\n"))

	res, err := newEngine(t, deps).ConvertPath(context.Background(), p, types.StreamInfo{})
	require.NoError(t, err)
	assert.Equal(t, "pdf", res.Converter)
	assert.Equal(t, "Page one\n\nPage two", res.Markdown)
	assert.True(t, exec.Called("/usr/bin/pdftotext -layout -enc UTF-8 "+p+" -"))
}

func TestPDFConverter_Unavailable(t *testing.T) {
	p := writeFile(t, "paper.pdf", []byte("%PDF-1.7\n"))
	_, err := newEngine(t, Deps{}).ConvertPath(context.Background(), p, types.StreamInfo{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, convert.ErrUnsupportedFormat))
}

func TestPandocConverter(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		style    map[string]string
		wantArgs []string
	}{
		{
			name:     "docx with tracked changes",
			file:     "memo.docx",
			style:    map[string]string{StyleTrackChanges: "all"},
			wantArgs: []string{"--from", "docx", "--to", "gfm", "--wrap", "none", "--track-changes=all"},
		},
		{
			name:     "unknown track-changes mode ignored",
			file:     "memo.docx",
			style:    map[string]string{StyleTrackChanges: "bogus"},
			wantArgs: []string{"--from", "docx", "--to", "gfm", "--wrap", "none"},
		},
		{
			name:     "latex ignores docx directives",
			file:     "paper.tex",
			style:    map[string]string{StyleTrackChanges: "accept"},
			wantArgs: []string{"--from", "latex", "--to", "gfm", "--wrap", "none"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{out: "# Converted\n\nBody\n"}
			deps := Deps{
				Config: types.DefaultConfig(),
				Caps:   capability.Set{Pandoc: true, ContainerRuntime: true, Runtime: rt},
			}
			p := writeFile(t, tt.file, []byte("document bytes"))

			res, err := newEngine(t, deps).ConvertPath(context.Background(), p, types.StreamInfo{StyleMap: tt.style})
			require.NoError(t, err)
			assert.Equal(t, "pandoc", res.Converter)
			assert.Equal(t, "# Converted\n\nBody", res.Markdown)
			assert.Equal(t, "pandoc/core:latest", rt.image)
			assert.Equal(t, tt.wantArgs, rt.args)
			assert.Equal(t, "document bytes", rt.stdin)
		})
	}
}

func TestPandocConverter_FailureIsTerminal(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("exit status 64")}
	deps := Deps{
		Config: types.DefaultConfig(),
		Caps:   capability.Set{Pandoc: true, Runtime: rt},
	}
	p := writeFile(t, "memo.odt", []byte("odt bytes"))

	_, err := newEngine(t, deps).ConvertPath(context.Background(), p, types.StreamInfo{})
	require.Error(t, err)

	var convErr *convert.ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "pandoc", convErr.Converter)
	assert.True(t, strings.Contains(err.Error(), "exit status 64"))
}
