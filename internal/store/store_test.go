// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mdconvert/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "db", "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLatest(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Record(ctx, types.ConversionRecord{Source: "a.docx", SHA256: "h1", Status: types.ConversionDone, ConvertedAt: base})
	require.NoError(t, err)
	_, err = s.Record(ctx, types.ConversionRecord{Source: "a.docx", SHA256: "h2", Status: types.ConversionDone, ConvertedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.Record(ctx, types.ConversionRecord{Source: "a.docx", SHA256: "h3", Status: types.ConversionFailed, Error: "boom", ConvertedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "a.docx")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "h2", latest.SHA256, "failed runs are not a baseline")
	assert.True(t, latest.ConvertedAt.Equal(base.Add(time.Hour)))
	assert.NotEmpty(t, latest.ID)

	none, err := s.Latest(ctx, "missing.docx")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRecord_AssignsDefaults(t *testing.T) {
	s := testStore(t)
	rec, err := s.Record(context.Background(), types.ConversionRecord{Source: "x", SHA256: "h", Status: types.ConversionDone})
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.False(t, rec.ConvertedAt.IsZero())
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, src := range []string{"docs/a.pdf", "docs/b.pdf", "https://example.com/c"} {
		status := types.ConversionDone
		if i == 1 {
			status = types.ConversionFailed
		}
		_, err := s.Record(ctx, types.ConversionRecord{
			Source: src, SHA256: "h", Status: status, ConvertedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{name: "all newest first", opts: QueryOptions{}, want: []string{"https://example.com/c", "docs/b.pdf", "docs/a.pdf"}},
		{name: "contains", opts: QueryOptions{Contains: "docs/"}, want: []string{"docs/b.pdf", "docs/a.pdf"}},
		{name: "status", opts: QueryOptions{Status: types.ConversionFailed}, want: []string{"docs/b.pdf"}},
		{name: "limit", opts: QueryOptions{MaxResults: 1}, want: []string{"https://example.com/c"}},
		{name: "exact source", opts: QueryOptions{Source: "docs/a.pdf"}, want: []string{"docs/a.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.List(ctx, tt.opts)
			require.NoError(t, err)
			var got []string
			for _, r := range recs {
				got = append(got, r.Source)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Record(ctx, types.ConversionRecord{Source: "old", SHA256: "h", Status: types.ConversionDone, ConvertedAt: old})
	require.NoError(t, err)
	_, err = s.Record(ctx, types.ConversionRecord{Source: "new", SHA256: "h", Status: types.ConversionDone, ConvertedAt: recent})
	require.NoError(t, err)

	n, err := s.Prune(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recs, err := s.List(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].Source)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, err := s.Record(ctx, types.ConversionRecord{Source: "a.csv", SHA256: "h", Converter: "csv", Status: types.ConversionDone})
	require.NoError(t, err)

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Export(ctx, &buf, "yaml", QueryOptions{}))
		var recs []types.ConversionRecord
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "csv", recs[0].Converter)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Export(ctx, &buf, "json", QueryOptions{}))
		var recs []types.ConversionRecord
		require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "a.csv", recs[0].Source)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := s.Export(ctx, &bytes.Buffer{}, "xml", QueryOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown export format")
	})
}

func TestNewStore_InMemory(t *testing.T) {
	s, err := NewStore(types.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Record(context.Background(), types.ConversionRecord{Source: "m", SHA256: "h", Status: types.ConversionDone})
	require.NoError(t, err)
	recs, err := s.List(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
