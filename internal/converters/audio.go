// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"strings"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/internal/metadata"
	"github.com/pdiddy/mdconvert/internal/transcribe"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// WAVConverter renders audio metadata lines followed by a transcript
// section from the transcription chain.
type WAVConverter struct {
	metadata *metadata.Extractor
	chain    *transcribe.Chain
	client   transcribe.CloudClient
}

// NewWAV creates the WAV converter from deps.
func NewWAV(deps Deps) *WAVConverter {
	return &WAVConverter{
		metadata: deps.Extractor(metadata.AudioFields),
		chain:    deps.Chain(),
		client:   deps.CloudClient,
	}
}

func (*WAVConverter) Name() string { return "wav" }

func (*WAVConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".wav") || info.HasMIMEType("audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave")
}

func (w *WAVConverter) Convert(ctx context.Context, src *convert.Source, _ types.StreamInfo) (*types.Result, error) {
	return w.render(ctx, src.Path, nil), nil
}

// render composes metadata and transcript for path. prepare, when set,
// produces the WAV handed to the local backend.
func (w *WAVConverter) render(ctx context.Context, path string, prepare transcribe.PrepareFunc) *types.Result {
	var b strings.Builder
	b.WriteString(metadata.Render(w.metadata.Extract(ctx, path, ""), w.metadata.Fields()))

	outcome := w.chain.Transcribe(ctx, path, transcribe.Options{
		Client:       w.client,
		PrepareLocal: prepare,
	})
	b.WriteString(outcome.Markdown())

	return &types.Result{Markdown: strings.TrimSpace(b.String())}
}

// MP3Converter handles MP3 through the WAV converter, transcoding to WAV
// only when the local backend runs.
type MP3Converter struct {
	wav *WAVConverter
}

// NewMP3 creates the MP3 converter on top of wav.
func NewMP3(wav *WAVConverter) *MP3Converter {
	return &MP3Converter{wav: wav}
}

func (*MP3Converter) Name() string { return "mp3" }

func (*MP3Converter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".mp3") || info.HasMIMEType("audio/mpeg", "audio/mp3")
}

func (m *MP3Converter) Convert(ctx context.Context, src *convert.Source, _ types.StreamInfo) (*types.Result, error) {
	return m.wav.render(ctx, src.Path, transcribe.MP3Preparer(src.Path)), nil
}
