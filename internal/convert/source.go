// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/mdconvert/pkg/types"
)

// Source is a seekable local byte source. Stream and remote inputs are
// materialised to a temporary file before dispatch; the engine removes it.
type Source struct {
	Path string
}

// Open opens the source for reading.
func (s *Source) Open() (*os.File, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	return f, nil
}

// ReadAll returns the full content.
func (s *Source) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return data, nil
}

// Head returns up to n leading bytes.
func (s *Source) Head(n int) ([]byte, error) {
	f, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	m, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return buf[:m], nil
}

// guesses returns the hint sets to try in order: the caller's hints (with a
// declared MIME type mapped to an extension), then the sniffed content type
// when it adds information.
func guesses(src *Source, base types.StreamInfo) []types.StreamInfo {
	var out []types.StreamInfo

	hinted := base
	if hinted.Extension == "" && hinted.MIMEType != "" {
		if m := mimetype.Lookup(hinted.BaseMIMEType()); m != nil {
			hinted.Extension = m.Extension()
		}
	}
	if hinted.Extension != "" || hinted.MIMEType != "" {
		out = append(out, hinted)
	}

	if m, err := mimetype.DetectFile(src.Path); err == nil && !m.Is("application/octet-stream") {
		sniffed := base
		mt, params, _ := strings.Cut(m.String(), ";")
		sniffed.MIMEType = mt
		sniffed.Extension = m.Extension()
		if sniffed.Charset == "" && params != "" {
			if _, cs, ok := strings.Cut(params, "charset="); ok {
				sniffed.Charset = strings.TrimSpace(cs)
			}
		}
		if len(out) == 0 || sniffed.NormalizedExtension() != hinted.NormalizedExtension() || sniffed.BaseMIMEType() != hinted.BaseMIMEType() {
			out = append(out, sniffed)
		}
	}

	if len(out) == 0 {
		out = append(out, base)
	}
	return out
}
