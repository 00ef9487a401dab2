// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
	"time"
)

// ConversionStatus records the outcome of converting one input.
type ConversionStatus string

const (
	ConversionNone    ConversionStatus = "none"
	ConversionDone    ConversionStatus = "converted"
	ConversionSkipped ConversionStatus = "skipped"
	ConversionFailed  ConversionStatus = "failed"
)

// Result is the output of exactly one successful converter attempt.
// A Result is either absent (nil) or complete; converters never return a
// partially populated one.
type Result struct {
	// Title is an optional short title. It is semantic only; the engine
	// never derives it.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Markdown is the normalized body. The engine trims it before returning.
	Markdown string `json:"markdown" yaml:"markdown"`

	// Converter names the converter that produced the result.
	Converter string `json:"converter" yaml:"converter"`
}

// StreamInfo carries the hints that narrow converter selection without
// parsing the input.
type StreamInfo struct {
	// Extension is the file extension including the leading dot (".wav").
	Extension string `json:"extension,omitempty"`

	// MIMEType is the declared or sniffed media type.
	MIMEType string `json:"mime_type,omitempty"`

	// Charset is the declared text encoding, if any.
	Charset string `json:"charset,omitempty"`

	// Filename is the original file name, used for display.
	Filename string `json:"filename,omitempty"`

	// LocalPath is the original local path when the input came from disk.
	LocalPath string `json:"local_path,omitempty"`

	// URL is the source locator for web-origin inputs.
	URL string `json:"url,omitempty"`

	// StyleMap is an opaque directive map forwarded to converters that
	// understand it.
	StyleMap map[string]string `json:"style_map,omitempty"`
}

// NormalizedExtension returns Extension lowercased with a leading dot.
func (s StreamInfo) NormalizedExtension() string {
	ext := strings.ToLower(strings.TrimSpace(s.Extension))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// BaseMIMEType returns the media type without parameters, lowercased.
func (s StreamInfo) BaseMIMEType() string {
	mt, _, _ := strings.Cut(s.MIMEType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// DisplayName returns the best available name for log and output lines.
func (s StreamInfo) DisplayName() string {
	switch {
	case s.Filename != "":
		return s.Filename
	case s.LocalPath != "":
		return filepath.Base(s.LocalPath)
	case s.URL != "":
		return s.URL
	default:
		return "stream"
	}
}

// HasExtension reports whether the normalized extension is one of exts.
func (s StreamInfo) HasExtension(exts ...string) bool {
	ext := s.NormalizedExtension()
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// HasMIMEType reports whether the base media type is one of types, or
// starts with a prefix ending in "/" (e.g. "audio/").
func (s StreamInfo) HasMIMEType(types ...string) bool {
	mt := s.BaseMIMEType()
	if mt == "" {
		return false
	}
	for _, t := range types {
		if strings.HasSuffix(t, "/") && strings.HasPrefix(mt, t) {
			return true
		}
		if mt == t {
			return true
		}
	}
	return false
}

// ConversionRecord is one row of conversion history.
type ConversionRecord struct {
	ID          string           `json:"id" yaml:"id"`
	Source      string           `json:"source" yaml:"source"`
	SHA256      string           `json:"sha256" yaml:"sha256"`
	Converter   string           `json:"converter,omitempty" yaml:"converter,omitempty"`
	Status      ConversionStatus `json:"status" yaml:"status"`
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	OutputPath  string           `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	ConvertedAt time.Time        `json:"converted_at" yaml:"converted_at"`
}
