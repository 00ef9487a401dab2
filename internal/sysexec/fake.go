// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sysexec

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// Fake is an Executor for tests. Binaries listed in Bins resolve on PATH;
// Handlers are keyed by binary name (or full path) and produce the command
// output. Calls are recorded in order.
type Fake struct {
	Bins     map[string]bool
	Handlers map[string]func(args []string, stdin io.Reader, stdout io.Writer) error

	mu    sync.Mutex
	calls []string
}

// LookPath implements Executor.
func (f *Fake) LookPath(file string) (string, error) {
	if f.Bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

// Run implements Executor.
func (f *Fake) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	h, ok := f.Handlers[name]
	if !ok {
		h, ok = f.Handlers[strings.TrimPrefix(name, "/usr/bin/")]
	}
	if !ok {
		return errors.New("command failed: " + name)
	}
	if stdout == nil {
		stdout = io.Discard
	}
	return h(args, stdin, stdout)
}

// Calls returns the recorded command lines.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Called reports whether any recorded command line starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
