// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// CSVConverter renders comma-separated values as a Markdown table. The
// first record is the header.
type CSVConverter struct{}

// NewCSV creates the CSV converter.
func NewCSV() *CSVConverter { return &CSVConverter{} }

func (CSVConverter) Name() string { return "csv" }

func (CSVConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".csv") || info.HasMIMEType("text/csv", "application/csv")
}

func (CSVConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return &types.Result{Markdown: table(rows)}, nil
}

// JSONConverter validates and pretty-prints JSON in a fenced block.
type JSONConverter struct{}

// NewJSON creates the JSON converter.
func NewJSON() *JSONConverter { return &JSONConverter{} }

func (JSONConverter) Name() string { return "json" }

func (JSONConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".json") || info.HasMIMEType("application/json")
}

func (JSONConverter) Convert(_ context.Context, src *convert.Source, _ types.StreamInfo) (*types.Result, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	return &types.Result{Markdown: fence("json", out.String())}, nil
}

// YAMLConverter validates YAML and wraps it in a fenced block.
type YAMLConverter struct{}

// NewYAML creates the YAML converter.
func NewYAML() *YAMLConverter { return &YAMLConverter{} }

func (YAMLConverter) Name() string { return "yaml" }

func (YAMLConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".yaml", ".yml") || info.HasMIMEType("application/yaml", "application/x-yaml", "text/yaml")
}

func (YAMLConverter) Convert(_ context.Context, src *convert.Source, info types.StreamInfo) (*types.Result, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	}
	return &types.Result{Markdown: fence("yaml", text)}, nil
}

// fence wraps body in a fenced code block, lengthening the fence when the
// body itself contains one.
func fence(lang, body string) string {
	marker := "```"
	for strings.Contains(body, marker) {
		marker += "`"
	}
	return marker + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + marker
}
