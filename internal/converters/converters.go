// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package converters implements the format converters registered with the
// dispatch engine. Converters that depend on optional backends (pdftotext,
// the pandoc image, transcription, vision) are built from an explicit
// capability.Set; a backend whose flag is false is never invoked.
package converters

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/mdconvert/internal/capability"
	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/metadata"
	"github.com/pdiddy/mdconvert/internal/sysexec"
	"github.com/pdiddy/mdconvert/internal/transcribe"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// Deps carries everything converters need from the caller. Clients are
// caller-owned; converters never create or close them.
type Deps struct {
	Config types.Config
	Caps   capability.Set
	Exec   sysexec.Executor
	Logger *slog.Logger

	// CloudClient enables the cloud transcription branch when non-nil.
	CloudClient transcribe.CloudClient

	// Describer enables image descriptions when non-nil and the vision
	// capability is on.
	Describer Describer
}

func (d Deps) exec() sysexec.Executor {
	if d.Exec == nil {
		return sysexec.Default
	}
	return d.Exec
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Extractor builds a metadata extractor for fields. When the metadata tool
// capability is off the extractor has no tool and yields nothing.
func (d Deps) Extractor(fields []string) *metadata.Extractor {
	tool := ""
	if d.Caps.MetadataTool {
		tool = d.Caps.MetadataToolPath
	}
	return metadata.NewExtractor(tool, fields,
		metadata.WithExecutor(d.exec()),
		metadata.WithTimeout(d.Config.Metadata.Timeout),
		metadata.WithLogger(d.logger()),
	)
}

// Chain builds the transcription chain from the probed flags.
func (d Deps) Chain() *transcribe.Chain {
	cloud := d.Config.Transcription.Cloud
	local := d.Config.Transcription.Local
	return transcribe.NewChain(
		transcribe.WithCloud(d.Caps.CloudTranscription, transcribe.NewCloud(cloud.Model, cloud.Timeout)),
		transcribe.WithLocal(d.Caps.LocalTranscription, transcribe.NewWhisper(d.Caps.WhisperBinary, d.Caps.WhisperModel,
			transcribe.WithWhisperExecutor(d.exec()),
			transcribe.WithLanguage(local.Language),
			transcribe.WithWhisperTimeout(local.Timeout),
			transcribe.WithWhisperLogger(d.logger()),
		)),
		transcribe.WithChainLogger(d.logger()),
	)
}

// RegisterDefaults registers the built-in converters with e. Format-specific
// converters go in the specific band; html, markdown, and plain text are
// generic and tried last, in that order.
func RegisterDefaults(e *convert.Engine, deps Deps) error {
	log := deps.logger()
	wav := NewWAV(deps)

	specific := []convert.Converter{
		NewWikipedia(),
		NewBing(),
		NewRSS(),
		NewCSV(),
		NewJSON(),
		NewYAML(),
		NewXLSX(),
		wav,
		NewMP3(wav),
		NewImage(deps),
		e.ArchiveConverter(),
	}
	if deps.Caps.PDFText {
		specific = append(specific, NewPDF(deps.Caps.PDFTextBinary, deps.exec()))
	} else {
		log.Debug("pdf converter disabled", "capability", capability.FlagPDFText)
	}
	if deps.Caps.Pandoc && deps.Caps.Runtime != nil {
		specific = append(specific, NewPandoc(deps.Caps.Runtime, deps.Config.Pandoc.Image))
	} else {
		log.Debug("pandoc converter disabled", "capability", capability.FlagPandoc)
	}

	for _, c := range specific {
		if err := e.Register(c, convert.PrioritySpecific); err != nil {
			return fmt.Errorf("registering defaults: %w", err)
		}
	}
	for _, c := range []convert.Converter{NewHTML(), NewMarkdown(), NewText()} {
		if err := e.Register(c, convert.PriorityGeneric); err != nil {
			return fmt.Errorf("registering defaults: %w", err)
		}
	}
	return nil
}

// table renders rows as a GitHub-flavoured Markdown table. The first row is
// the header; short rows are padded.
func table(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(r []string) {
		b.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(r) {
				cell = escapeCell(r[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for range width {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return b.String()
}

var cellReplacer = strings.NewReplacer("|", "\\|", "\r\n", "<br>", "\n", "<br>")

func escapeCell(s string) string {
	return cellReplacer.Replace(strings.TrimSpace(s))
}
