// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package capability determines which optional backends are usable in the
// current environment. Probing never fails: a missing binary, model file,
// credential, or container runtime turns the matching flag off.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/pdiddy/mdconvert/internal/container"
	"github.com/pdiddy/mdconvert/internal/metadata"
	"github.com/pdiddy/mdconvert/internal/sysexec"
	"github.com/pdiddy/mdconvert/pkg/types"
)

// Flag names used in reports and the HTTP capabilities endpoint.
const (
	FlagLocalTranscription = "local-speech-recognition"
	FlagCloudTranscription = "cloud-transcription"
	FlagMetadataTool       = "metadata-tool"
	FlagContainerRuntime   = "container-runtime"
	FlagPandoc             = "pandoc"
	FlagPDFText            = "pdf-text"
	FlagVision             = "vision"
)

// Advisory is a non-fatal configuration signal.
type Advisory struct {
	Capability string `json:"capability"`
	Message    string `json:"message"`
}

// Set is the immutable result of a probe.
type Set struct {
	LocalTranscription bool
	WhisperBinary      string
	WhisperModel       string

	CloudTranscription bool

	MetadataTool     bool
	MetadataToolPath string

	ContainerRuntime bool
	Runtime          container.Runtime
	Pandoc           bool

	PDFText       bool
	PDFTextBinary string

	Vision bool

	Advisories []Advisory
}

// Flags returns the boolean view keyed by flag name.
func (s Set) Flags() map[string]bool {
	return map[string]bool{
		FlagLocalTranscription: s.LocalTranscription,
		FlagCloudTranscription: s.CloudTranscription,
		FlagMetadataTool:       s.MetadataTool,
		FlagContainerRuntime:   s.ContainerRuntime,
		FlagPandoc:             s.Pandoc,
		FlagPDFText:            s.PDFText,
		FlagVision:             s.Vision,
	}
}

// Names returns the flag names in sorted order.
func (s Set) Names() []string {
	flags := s.Flags()
	names := make([]string, 0, len(flags))
	for n := range flags {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Credentials reports which cloud credentials the caller holds. The probe
// never reads secrets itself.
type Credentials struct {
	OpenAI    bool
	Anthropic bool
}

// Option configures a Prober.
type Option func(*Prober)

// WithExecutor overrides process lookup and execution.
func WithExecutor(e sysexec.Executor) Option {
	return func(p *Prober) { p.exec = e }
}

// WithCredentials records which cloud credentials are present.
func WithCredentials(c Credentials) Option {
	return func(p *Prober) { p.creds = c }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// Prober probes once and caches the result for its own lifetime.
type Prober struct {
	cfg    types.Config
	exec   sysexec.Executor
	creds  Credentials
	logger *slog.Logger

	once sync.Once
	set  Set
}

// NewProber creates a prober for cfg.
func NewProber(cfg types.Config, opts ...Option) *Prober {
	p := &Prober{
		cfg:    cfg,
		exec:   sysexec.Default,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe returns the capability set, computing it on the first call.
func (p *Prober) Probe(ctx context.Context) Set {
	p.once.Do(func() { p.set = p.probe(ctx) })
	return p.set
}

// Probe is a convenience for a one-shot probe.
func Probe(ctx context.Context, cfg types.Config, opts ...Option) Set {
	return NewProber(cfg, opts...).Probe(ctx)
}

func (p *Prober) probe(ctx context.Context) Set {
	var s Set

	p.probeMetadata(&s)
	p.probeLocal(&s)

	s.CloudTranscription = p.cfg.Transcription.Cloud.Enabled && p.creds.OpenAI
	s.Vision = p.cfg.Vision.Enabled && p.creds.Anthropic

	if rt, err := container.DetectRuntime(ctx, p.exec); err == nil {
		s.ContainerRuntime = true
		s.Runtime = rt
		if p.cfg.Pandoc.Enabled {
			if err := rt.ImageExists(ctx, p.cfg.Pandoc.Image); err == nil {
				s.Pandoc = true
			} else {
				p.logger.Debug("pandoc image unavailable", "error", err)
			}
		}
	} else {
		p.logger.Debug("container runtime unavailable", "error", err)
	}

	if bin := p.cfg.PDF.Binary; bin != "" {
		if path, err := p.exec.LookPath(bin); err == nil {
			s.PDFText = true
			s.PDFTextBinary = path
		}
	}

	p.logger.Debug("capabilities probed", "flags", s.Flags())
	return s
}

func (p *Prober) probeMetadata(s *Set) {
	res := metadata.Resolve(p.cfg.Metadata.ExiftoolPath, p.exec)
	if !res.Found() {
		return
	}
	if res.Implicit() {
		msg := fmt.Sprintf("exiftool discovered on PATH at %s; set metadata.exiftool_path or %s explicitly",
			res.Path, metadata.EnvToolPath)
		if p.cfg.Metadata.ImplicitDiscovery == types.DiscoveryDisable {
			msg = fmt.Sprintf("exiftool discovered on PATH at %s but implicit discovery is disabled; set metadata.exiftool_path or %s to enable it",
				res.Path, metadata.EnvToolPath)
			s.Advisories = append(s.Advisories, Advisory{Capability: FlagMetadataTool, Message: msg})
			return
		}
		s.Advisories = append(s.Advisories, Advisory{Capability: FlagMetadataTool, Message: msg})
	}
	s.MetadataTool = true
	s.MetadataToolPath = res.Path
}

func (p *Prober) probeLocal(s *Set) {
	local := p.cfg.Transcription.Local
	if !local.Enabled || local.Binary == "" {
		return
	}
	bin, err := p.exec.LookPath(local.Binary)
	if err != nil {
		p.logger.Debug("local transcription binary not found", "binary", local.Binary)
		return
	}
	if fi, err := os.Stat(local.ModelPath); err != nil || fi.IsDir() {
		p.logger.Debug("local transcription model not found", "model", local.ModelPath)
		return
	}
	s.LocalTranscription = true
	s.WhisperBinary = bin
	s.WhisperModel = local.ModelPath
}
