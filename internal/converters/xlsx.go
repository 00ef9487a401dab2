// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package converters

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

const xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSXConverter renders each worksheet as a "## <sheet>" section holding a
// Markdown table.
type XLSXConverter struct{}

// NewXLSX creates the spreadsheet converter.
func NewXLSX() *XLSXConverter { return &XLSXConverter{} }

func (XLSXConverter) Name() string { return "xlsx" }

func (XLSXConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".xlsx", ".xlsm") || info.HasMIMEType(xlsxMIMEType)
}

func (XLSXConverter) Convert(ctx context.Context, src *convert.Source, _ types.StreamInfo) (*types.Result, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&b, "## %s\n", sheet)
		if t := table(rows); t != "" {
			b.WriteString(t)
		}
		b.WriteString("\n")
	}
	return &types.Result{Markdown: b.String()}, nil
}
