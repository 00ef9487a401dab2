// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mdconvert/pkg/types"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/page.html", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mdconvert-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte("<html><title>x</title></html>"))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="report.CSV"`)
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := New(types.HTTPConfig{UserAgent: "mdconvert-test", MaxRetries: -1}, ts.Client())

	t.Run("html with charset", func(t *testing.T) {
		d, err := f.Fetch(context.Background(), ts.URL+"/docs/page.html")
		require.NoError(t, err)
		defer d.Remove()

		assert.Equal(t, "text/html", d.MIMEType)
		assert.Equal(t, "ISO-8859-1", d.Charset)
		assert.Equal(t, "page.html", d.Filename)
		assert.Equal(t, ".html", d.Extension())
		assert.Equal(t, ts.URL+"/docs/page.html", d.URL)
		assert.Equal(t, int64(29), d.Size)

		data, err := os.ReadFile(d.Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<title>x</title>")
	})

	t.Run("content disposition filename", func(t *testing.T) {
		d, err := f.Fetch(context.Background(), ts.URL+"/download")
		require.NoError(t, err)
		defer d.Remove()

		assert.Equal(t, "report.CSV", d.Filename)
		assert.Equal(t, ".csv", d.Extension())
	})

	t.Run("remove deletes temp file", func(t *testing.T) {
		d, err := f.Fetch(context.Background(), ts.URL+"/download")
		require.NoError(t, err)
		require.NoError(t, d.Remove())
		_, err = os.Stat(d.Path)
		assert.True(t, os.IsNotExist(err))
		assert.NoError(t, d.Remove(), "second remove is a no-op")
	})

	t.Run("http error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), ts.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), "ftp://example.com/x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported url scheme")
	})
}

func TestFilename(t *testing.T) {
	mustURL := func(s string) *url.URL {
		u, err := url.Parse(s)
		require.NoError(t, err)
		return u
	}

	tests := []struct {
		name        string
		disposition string
		url         string
		want        string
	}{
		{name: "url path", url: "https://example.com/a/b/file.pdf", want: "file.pdf"},
		{name: "root path", url: "https://example.com/", want: ""},
		{name: "no path", url: "https://example.com", want: ""},
		{name: "disposition wins", disposition: `inline; filename="x.docx"`, url: "https://example.com/get?id=1", want: "x.docx"},
		{name: "disposition path stripped", disposition: `attachment; filename="..\\..\\evil.txt"`, url: "https://example.com/", want: "evil.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filename(tt.disposition, mustURL(tt.url)))
		})
	}
}
