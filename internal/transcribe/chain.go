// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transcribe turns audio files into transcript sections. A Chain
// holds a cloud backend (hosted Whisper, reached through a caller-supplied
// client) and a local backend (whisper.cpp), each gated by a capability flag.
//
// The chain has exactly three branches. A configured cloud attempt is final:
// its failure is reported inline and the local backend is not tried. When the
// cloud branch is not taken, the local backend runs if available. When neither
// is available no transcript section is produced.
package transcribe

import (
	"context"
	"log/slog"
	"strings"
)

// Backend names the backend that produced an Outcome.
type Backend string

const (
	BackendNone  Backend = ""
	BackendCloud Backend = "cloud"
	BackendLocal Backend = "local"
)

// Section headings and fixed phrases rendered into the Markdown body.
const (
	HeadingCloud     = "### Audio Transcript (Whisper):"
	Heading          = "### Audio Transcript:"
	NoSpeechDetected = "[No speech detected]"
	LocalFailure     = "Error. Could not transcribe this audio."
	cloudFailure     = "Error transcribing with Whisper: "
)

// Transcriber converts a 16-bit PCM WAV file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Outcome is the result of one pass through the chain.
type Outcome struct {
	Backend Backend
	Text    string
	Err     error
}

// Attempted reports whether any backend ran.
func (o Outcome) Attempted() bool { return o.Backend != BackendNone }

// Markdown renders the transcript section, or "" when nothing should be
// appended.
func (o Outcome) Markdown() string {
	switch o.Backend {
	case BackendCloud:
		if o.Err != nil {
			return "\n\n" + Heading + "\n" + cloudFailure + o.Err.Error()
		}
		if o.Text == "" {
			return ""
		}
		return "\n\n" + HeadingCloud + "\n" + o.Text
	case BackendLocal:
		if o.Err != nil {
			return "\n\n" + Heading + "\n" + LocalFailure
		}
		if o.Text == "" {
			return "\n\n" + Heading + "\n" + NoSpeechDetected
		}
		return "\n\n" + Heading + "\n" + o.Text
	default:
		return ""
	}
}

// PrepareFunc materialises a local-backend-readable WAV for a source that
// is not one (compressed audio). The returned cleanup is always non-nil and
// must be called.
type PrepareFunc func(ctx context.Context) (wavPath string, cleanup func(), err error)

// Options are per-call inputs.
type Options struct {
	// Client is the caller-owned cloud client. Nil disables the cloud branch.
	Client CloudClient

	// PrepareLocal, when set, produces the WAV handed to the local backend.
	// It runs only if the local branch is taken.
	PrepareLocal PrepareFunc
}

// Chain applies the backend precedence.
type Chain struct {
	cloudAvailable bool
	cloud          *Cloud

	localAvailable bool
	local          Transcriber

	logger *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithCloud enables the cloud branch when available is true.
func WithCloud(available bool, c *Cloud) ChainOption {
	return func(ch *Chain) {
		ch.cloudAvailable = available && c != nil
		ch.cloud = c
	}
}

// WithLocal enables the local branch when available is true.
func WithLocal(available bool, t Transcriber) ChainOption {
	return func(ch *Chain) {
		ch.localAvailable = available && t != nil
		ch.local = t
	}
}

// WithChainLogger sets the logger.
func WithChainLogger(l *slog.Logger) ChainOption {
	return func(ch *Chain) { ch.logger = l }
}

// NewChain builds a chain. With no options both branches are off.
func NewChain(opts ...ChainOption) *Chain {
	ch := &Chain{logger: slog.Default()}
	for _, o := range opts {
		o(ch)
	}
	return ch
}

// CloudAvailable reports whether the cloud capability is on.
func (ch *Chain) CloudAvailable() bool { return ch.cloudAvailable }

// LocalAvailable reports whether the local capability is on.
func (ch *Chain) LocalAvailable() bool { return ch.localAvailable }

// Transcribe runs the chain for audioPath. It never returns an error;
// backend failures are carried in the Outcome.
func (ch *Chain) Transcribe(ctx context.Context, audioPath string, opts Options) Outcome {
	if opts.Client != nil && ch.cloudAvailable {
		text, err := ch.cloud.Transcribe(ctx, opts.Client, audioPath)
		if err != nil {
			ch.logger.Warn("cloud transcription failed", "path", audioPath, "error", err)
			return Outcome{Backend: BackendCloud, Err: err}
		}
		return Outcome{Backend: BackendCloud, Text: strings.TrimSpace(text)}
	}

	if ch.localAvailable {
		text, err := ch.runLocal(ctx, audioPath, opts.PrepareLocal)
		if err != nil {
			ch.logger.Warn("local transcription failed", "path", audioPath, "error", err)
			return Outcome{Backend: BackendLocal, Err: err}
		}
		return Outcome{Backend: BackendLocal, Text: strings.TrimSpace(text)}
	}

	ch.logger.Debug("no transcription backend available", "path", audioPath)
	return Outcome{}
}

func (ch *Chain) runLocal(ctx context.Context, audioPath string, prepare PrepareFunc) (string, error) {
	wavPath := audioPath
	if prepare != nil {
		p, cleanup, err := prepare(ctx)
		defer cleanup()
		if err != nil {
			return "", err
		}
		wavPath = p
	}
	return ch.local.Transcribe(ctx, wavPath)
}
