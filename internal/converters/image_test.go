// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mdconvert/internal/capability"
	"github.com/pdiddy/mdconvert/internal/sysexec"
	"github.com/pdiddy/mdconvert/pkg/types"
)

type fakeDescriber struct {
	text  string
	err   error
	mimes []string
}

func (f *fakeDescriber) Describe(_ context.Context, _ string, mimeType string) (string, error) {
	f.mimes = append(f.mimes, mimeType)
	return f.text, f.err
}

func imageExec() *sysexec.Fake {
	return &sysexec.Fake{
		Handlers: map[string]func([]string, io.Reader, io.Writer) error{
			"exiftool": func(_ []string, _ io.Reader, w io.Writer) error {
				_, err := io.WriteString(w, "GPSPosition: 51.5 N, 0.1 W\nMake: Canon\nImageSize: 640x480\n")
				return err
			},
		},
	}
}

func TestImageConverter(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	const meta = "ImageSize: 640x480\nGPSPosition: 51.5 N, 0.1 W"

	tests := []struct {
		name      string
		vision    bool
		describer *fakeDescriber
		want      string
		wantCalls int
	}{
		{
			name: "metadata only",
			want: meta,
		},
		{
			name:      "description appended",
			vision:    true,
			describer: &fakeDescriber{text: "A gopher at a desk."},
			want:      meta + "\n\n# Description:\nA gopher at a desk.",
			wantCalls: 1,
		},
		{
			name:      "vision capability off",
			describer: &fakeDescriber{text: "unused"},
			want:      meta,
		},
		{
			name:      "description failure noted inline",
			vision:    true,
			describer: &fakeDescriber{err: errors.New("overloaded")},
			want:      meta + "\n\n# Description:\n" + DescriptionFailure,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{
				Config: types.DefaultConfig(),
				Exec:   imageExec(),
				Caps: capability.Set{
					MetadataTool:     true,
					MetadataToolPath: "/usr/bin/exiftool",
					Vision:           tt.vision,
				},
			}
			if tt.describer != nil {
				deps.Describer = tt.describer
			}

			res, err := newEngine(t, deps).ConvertPath(context.Background(), writeFile(t, "photo.png", png), types.StreamInfo{})
			require.NoError(t, err)
			assert.Equal(t, "image", res.Converter)
			assert.Equal(t, tt.want, res.Markdown)
			if tt.describer != nil {
				assert.Len(t, tt.describer.mimes, tt.wantCalls)
				for _, m := range tt.describer.mimes {
					assert.Equal(t, "image/png", m)
				}
			}
		})
	}
}

func TestNewAnthropicDescriber_RequiresKey(t *testing.T) {
	_, err := NewAnthropicDescriber("", types.DefaultConfig().Vision)
	assert.Error(t, err)

	d, err := NewAnthropicDescriber("sk-test", types.VisionConfig{Model: "claude-haiku-4-5"})
	require.NoError(t, err)
	assert.Equal(t, defaultVisionPrompt, d.prompt)
	assert.Equal(t, int64(1024), d.maxTokens)
}
