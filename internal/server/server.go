// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the conversion entry points over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/mdconvert/internal/capability"
	"github.com/pdiddy/mdconvert/internal/convert"
	"github.com/pdiddy/mdconvert/pkg/types"
)

const (
	defaultMaxBody = 256 << 20
	defaultTimeout = 10 * time.Minute
)

// Server serves conversions from one engine.
type Server struct {
	engine  *convert.Engine
	caps    capability.Set
	maxBody int64
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBody limits request bodies to n bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server. caps is reported by the capabilities endpoint.
func New(engine *convert.Engine, caps capability.Set, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		caps:    caps,
		maxBody: defaultMaxBody,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.health)
	r.Get("/v1/capabilities", s.capabilities)
	r.Post("/v1/convert", s.convert)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "mdconvert"})
}

// CapabilitiesResponse is the body of GET /v1/capabilities.
type CapabilitiesResponse struct {
	Flags      map[string]bool       `json:"flags"`
	Advisories []capability.Advisory `json:"advisories"`
	Converters []string              `json:"converters"`
}

func (s *Server) capabilities(w http.ResponseWriter, _ *http.Request) {
	adv := s.caps.Advisories
	if adv == nil {
		adv = []capability.Advisory{}
	}
	writeJSON(w, http.StatusOK, CapabilitiesResponse{
		Flags:      s.caps.Flags(),
		Advisories: adv,
		Converters: s.engine.Converters(),
	})
}

// ConvertRequest is the JSON form of POST /v1/convert.
type ConvertRequest struct {
	URL       string `json:"url"`
	Extension string `json:"ext,omitempty"`
	MIMEType  string `json:"mime,omitempty"`
}

// ConvertResponse is the body of a successful conversion.
type ConvertResponse struct {
	Title     string `json:"title,omitempty"`
	Markdown  string `json:"markdown"`
	Converter string `json:"converter"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// convert accepts either a JSON body naming a URL or the raw document bytes
// with hints in the query string (ext, mime, url, filename).
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	ctype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		res *types.Result
		err error
	)
	if ctype == "application/json" {
		var req ConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
			return
		}
		if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("url must be an http or https URL: %q", req.URL))
			return
		}
		res, err = s.engine.ConvertURL(r.Context(), req.URL, types.StreamInfo{
			Extension: req.Extension,
			MIMEType:  req.MIMEType,
		})
	} else {
		res, err = s.engine.ConvertStream(r.Context(), r.Body, streamHints(r, ctype))
	}
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	if wantsMarkdown(r) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Markdown))
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{Title: res.Title, Markdown: res.Markdown, Converter: res.Converter})
}

func streamHints(r *http.Request, ctype string) types.StreamInfo {
	q := r.URL.Query()
	info := types.StreamInfo{
		Extension: q.Get("ext"),
		MIMEType:  q.Get("mime"),
		URL:       q.Get("url"),
		Filename:  q.Get("filename"),
	}
	if info.MIMEType == "" && ctype != "" && ctype != "application/octet-stream" {
		info.MIMEType = r.Header.Get("Content-Type")
	}
	if info.Extension != "" && !strings.HasPrefix(info.Extension, ".") {
		info.Extension = "." + info.Extension
	}
	return info
}

func wantsMarkdown(r *http.Request) bool {
	return r.URL.Query().Get("format") == "markdown" ||
		strings.Contains(r.Header.Get("Accept"), "text/markdown")
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, convert.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, convert.ErrConversionFailed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	s.logger.Warn("conversion request failed", "status", status, "request_id", reqID, "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
