// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/mdconvert/internal/sysexec"
)

// blankMarkers are whisper.cpp placeholders for segments without speech.
var blankMarkers = []string{"[BLANK_AUDIO]", "[ Silence ]", "[silence]", "(silence)"}

// Whisper drives the whisper.cpp command-line tool against a ggml model.
type Whisper struct {
	binary   string
	model    string
	language string
	timeout  time.Duration
	exec     sysexec.Executor
	logger   *slog.Logger
}

// WhisperOption configures a Whisper backend.
type WhisperOption func(*Whisper)

// WithWhisperExecutor overrides the process executor.
func WithWhisperExecutor(e sysexec.Executor) WhisperOption {
	return func(w *Whisper) { w.exec = e }
}

// WithLanguage sets the spoken language ("auto" to detect).
func WithLanguage(lang string) WhisperOption {
	return func(w *Whisper) { w.language = lang }
}

// WithWhisperTimeout bounds one transcription.
func WithWhisperTimeout(d time.Duration) WhisperOption {
	return func(w *Whisper) { w.timeout = d }
}

// WithWhisperLogger sets the logger.
func WithWhisperLogger(l *slog.Logger) WhisperOption {
	return func(w *Whisper) { w.logger = l }
}

// NewWhisper creates a local backend for binary and model.
func NewWhisper(binary, model string, opts ...WhisperOption) *Whisper {
	w := &Whisper{
		binary: binary,
		model:  model,
		exec:   sysexec.Default,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Transcribe normalises wavPath to 16 kHz mono 16-bit PCM when needed and
// runs whisper.cpp on it.
func (w *Whisper) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	input, cleanup, err := PrepareWAV(wavPath)
	defer cleanup()
	if err != nil {
		return "", err
	}

	args := []string{"-m", w.model, "-f", input, "-nt", "-np"}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}

	out, err := sysexec.Output(ctx, w.exec, w.binary, args...)
	if err != nil {
		return "", fmt.Errorf("transcribe: whisper: %w", err)
	}
	text := cleanTranscript(string(out))
	w.logger.Debug("local transcription complete", "path", wavPath, "chars", len(text))
	return text, nil
}

// cleanTranscript joins output lines and drops no-speech markers.
func cleanTranscript(out string) string {
	var parts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range blankMarkers {
			line = strings.TrimSpace(strings.ReplaceAll(line, m, ""))
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
