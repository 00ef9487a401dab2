// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/mdconvert/internal/container"
	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/sysexec"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// PDFConverter extracts text with pdftotext, preserving the page layout.
type PDFConverter struct {
	binary string
	exec   sysexec.Executor
}

// NewPDF creates a converter that runs binary.
func NewPDF(binary string, exec sysexec.Executor) *PDFConverter {
	return &PDFConverter{binary: binary, exec: exec}
}

func (*PDFConverter) Name() string { return "pdf" }

func (*PDFConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".pdf") || info.HasMIMEType("application/pdf")
}

func (p *PDFConverter) Convert(ctx context.Context, src *convert.Source, _ types.StreamInfo) (*types.Result, error) {
	out, err := sysexec.Output(ctx, p.exec, p.binary, "-layout", "-enc", "UTF-8", src.Path, "-")
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	return &types.Result{Markdown: strings.ReplaceAll(string(out), "\f", "\n\n")}, nil
}

// StyleTrackChanges selects how tracked changes in word-processor documents
// are rendered: "accept", "reject", or "all".
const StyleTrackChanges = "track-changes"

// pandocFormats maps extensions to pandoc reader names.
var pandocFormats = map[string]string{
	".docx":  "docx",
	".odt":   "odt",
	".epub":  "epub",
	".rtf":   "rtf",
	".rst":   "rst",
	".org":   "org",
	".tex":   "latex",
	".latex": "latex",
}

var pandocMIMETypes = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.oasis.opendocument.text":                                 "odt",
	"application/epub+zip":                                                    "epub",
	"application/rtf":                                                         "rtf",
	"text/rtf":                                                                "rtf",
	"application/x-tex":                                                       "latex",
	"text/x-tex":                                                              "latex",
}

// PandocConverter converts word-processor and markup documents by piping them
// through the pandoc container image. It depends on a container.Runtime
// (docker or podman) injected at construction time.
type PandocConverter struct {
	runtime container.Runtime
	image   string
}

// NewPandoc creates a converter that runs image through rt.
func NewPandoc(rt container.Runtime, image string) *PandocConverter {
	return &PandocConverter{runtime: rt, image: image}
}

func (*PandocConverter) Name() string { return "pandoc" }

func (*PandocConverter) Accepts(info types.StreamInfo) bool {
	return pandocFormat(info) != ""
}

func pandocFormat(info types.StreamInfo) string {
	if f, ok := pandocFormats[info.NormalizedExtension()]; ok {
		return f
	}
	return pandocMIMETypes[info.BaseMIMEType()]
}

func (p *PandocConverter) Convert(ctx context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	format := pandocFormat(info)

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", info.DisplayName(), err)
	}
	defer f.Close()

	args := []string{"--from", format, "--to", "gfm", "--wrap", "none"}
	if format == "docx" {
		switch mode := info.StyleMap[StyleTrackChanges]; mode {
		case "accept", "reject", "all":
			args = append(args, "--track-changes="+mode)
		}
	}

	var out bytes.Buffer
	if err := p.runtime.Run(ctx, p.image, args, f, &out); err != nil {
		return nil, fmt.Errorf("converting %s with pandoc: %w", info.DisplayName(), err)
	}
	return &types.Result{Markdown: out.String()}, nil
}
