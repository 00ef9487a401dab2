// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/mdconvert/pkg/types"
)

type depthKey struct{}

// archiveDepth returns how many archives enclose the current dispatch.
func archiveDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// ArchiveConverter expands zip archives and converts each entry through the
// owning engine. Entries that fail or are unsupported are skipped.
type ArchiveConverter struct {
	engine *Engine
}

// ArchiveConverter returns the zip converter bound to e.
func (e *Engine) ArchiveConverter() *ArchiveConverter {
	return &ArchiveConverter{engine: e}
}

func (a *ArchiveConverter) Name() string { return "zip" }

func (a *ArchiveConverter) Accepts(info types.StreamInfo) bool {
	return info.HasExtension(".zip") || info.HasMIMEType("application/zip", "application/x-zip-compressed")
}

func (a *ArchiveConverter) Convert(ctx context.Context, src *Source, info types.StreamInfo) (*types.Result, error) {
	depth := archiveDepth(ctx)
	if depth >= a.engine.archive.MaxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrArchiveDepth, a.engine.archive.MaxDepth)
	}

	// Entry names are reduced to base names below, so insecure paths are
	// tolerated.
	zr, err := zip.OpenReader(src.Path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	dir, err := os.MkdirTemp("", "mdconvert-zip-*")
	if err != nil {
		return nil, fmt.Errorf("creating extraction dir: %w", err)
	}
	defer os.RemoveAll(dir)

	entryCtx := context.WithValue(ctx, depthKey{}, depth+1)

	var b strings.Builder
	fmt.Fprintf(&b, "Content from the zip file `%s`:\n\n", info.DisplayName())

	for i, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		md, err := a.convertEntry(entryCtx, f, filepath.Join(dir, strconv.Itoa(i)), info)
		if err != nil {
			a.engine.logger.Warn("skipping archive entry", "archive", info.DisplayName(), "entry", f.Name, "error", err)
			continue
		}
		fmt.Fprintf(&b, "## File: %s\n\n%s\n\n", f.Name, md)
	}

	return &types.Result{Markdown: b.String()}, nil
}

var errEntryTooLarge = errors.New("entry exceeds size limit")

// convertEntry extracts f by base name under dir and dispatches it.
func (a *ArchiveConverter) convertEntry(ctx context.Context, f *zip.File, dir string, parent types.StreamInfo) (string, error) {
	limit := a.engine.archive.MaxEntryBytes
	if limit > 0 && f.UncompressedSize64 > uint64(limit) {
		return "", errEntryTooLarge
	}

	name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid entry name %q", f.Name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)
	defer os.Remove(dest)

	if err := extract(f, dest, limit); err != nil {
		return "", err
	}

	res, err := a.engine.dispatch(ctx, &Source{Path: dest}, types.StreamInfo{
		Extension: filepath.Ext(name),
		Filename:  name,
		StyleMap:  parent.StyleMap,
	})
	if err != nil {
		return "", err
	}
	return res.Markdown, nil
}

func extract(f *zip.File, dest string, limit int64) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating entry file: %w", err)
	}

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extracting entry: %w", err)
	}
	if limit > 0 && n > limit {
		return errEntryTooLarge
	}
	return nil
}
