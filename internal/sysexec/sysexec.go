// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sysexec abstracts external process execution so that the tool
// backends (exiftool, whisper.cpp, pdftotext, container runtimes) can be
// exercised in tests without the binaries installed.
package sysexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Executor runs external commands.
type Executor interface {
	// LookPath resolves a binary name on PATH.
	LookPath(file string) (string, error)

	// Run executes name with args. stdin may be nil; stdout and stderr may
	// be nil to discard output. A non-zero exit is returned as an error.
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// OS is the production Executor backed by os/exec.
type OS struct{}

// LookPath implements Executor.
func (OS) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run implements Executor.
func (OS) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Default is the shared production executor.
var Default Executor = OS{}

// Output runs the command and returns its stdout. On failure the error
// includes the trimmed stderr output.
func Output(ctx context.Context, e Executor, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	if err := e.Run(ctx, name, args, nil, &stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Silent runs the command discarding all output.
func Silent(ctx context.Context, e Executor, name string, args ...string) error {
	return e.Run(ctx, name, args, nil, nil, nil)
}
