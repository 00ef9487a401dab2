// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mdconvert/internal/sysexec"
)

// okHandler succeeds without output.
func okHandler(args []string, stdin io.Reader, stdout io.Writer) error { return nil }

// infoOnly returns a handler that succeeds only for "info".
func infoOnly(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 1 && args[0] == "info" {
		return nil
	}
	return errors.New("unexpected args: " + strings.Join(args, " "))
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *sysexec.Fake
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &sysexec.Fake{
				Bins:     map[string]bool{"docker": true},
				Handlers: map[string]func([]string, io.Reader, io.Writer) error{"docker": infoOnly},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &sysexec.Fake{
				Bins:     map[string]bool{"podman": true},
				Handlers: map[string]func([]string, io.Reader, io.Writer) error{"podman": infoOnly},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &sysexec.Fake{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &sysexec.Fake{
				Bins:     map[string]bool{"docker": true, "podman": true},
				Handlers: map[string]func([]string, io.Reader, io.Writer) error{"podman": infoOnly},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &sysexec.Fake{
				Bins: map[string]bool{"docker": true, "podman": true},
				Handlers: map[string]func([]string, io.Reader, io.Writer) error{
					"docker": infoOnly,
					"podman": infoOnly,
				},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := DetectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	imageCheck := func(want string) func([]string, io.Reader, io.Writer) error {
		return func(args []string, _ io.Reader, _ io.Writer) error {
			if strings.Join(args, " ") == want {
				return nil
			}
			return errors.New("no such image")
		}
	}

	tests := []struct {
		name    string
		mkRT    func(sysexec.Executor) Runtime
		handler func([]string, io.Reader, io.Writer) error
		bin     string
		wantErr bool
	}{
		{
			name:    "docker image exists",
			mkRT:    func(e sysexec.Executor) Runtime { return newDockerRuntime(e) },
			bin:     "docker",
			handler: imageCheck("image inspect pandoc/core:latest"),
		},
		{
			name:    "docker image not found",
			mkRT:    func(e sysexec.Executor) Runtime { return newDockerRuntime(e) },
			bin:     "docker",
			handler: imageCheck("image inspect other:latest"),
			wantErr: true,
		},
		{
			name:    "podman image exists",
			mkRT:    func(e sysexec.Executor) Runtime { return newPodmanRuntime(e) },
			bin:     "podman",
			handler: imageCheck("image exists pandoc/core:latest"),
		},
		{
			name:    "podman image not found",
			mkRT:    func(e sysexec.Executor) Runtime { return newPodmanRuntime(e) },
			bin:     "podman",
			handler: imageCheck("image exists other:latest"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &sysexec.Fake{Handlers: map[string]func([]string, io.Reader, io.Writer) error{tt.bin: tt.handler}}
			err := tt.mkRT(exec).ImageExists(context.Background(), "pandoc/core:latest")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "pandoc/core:latest")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	echo := func(args []string, stdin io.Reader, stdout io.Writer) error {
		data, _ := io.ReadAll(stdin)
		_, _ = stdout.Write([]byte(strings.Join(args, " ") + " | " + string(data)))
		return nil
	}

	tests := []struct {
		name    string
		mkRT    func(sysexec.Executor) Runtime
		bin     string
		handler func([]string, io.Reader, io.Writer) error
		wantOut string
		wantErr bool
	}{
		{
			name:    "docker run pipes stdin to stdout",
			mkRT:    func(e sysexec.Executor) Runtime { return newDockerRuntime(e) },
			bin:     "docker",
			handler: echo,
			wantOut: "run --rm -i --network none pandoc/core:latest --from docx | doc bytes",
		},
		{
			name:    "podman run pipes stdin to stdout",
			mkRT:    func(e sysexec.Executor) Runtime { return newPodmanRuntime(e) },
			bin:     "podman",
			handler: echo,
			wantOut: "run --rm -i --network none pandoc/core:latest --from docx | doc bytes",
		},
		{
			name: "run failure returns wrapped error",
			mkRT: func(e sysexec.Executor) Runtime { return newDockerRuntime(e) },
			bin:  "docker",
			handler: func([]string, io.Reader, io.Writer) error {
				return errors.New("container exited with code 1")
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &sysexec.Fake{Handlers: map[string]func([]string, io.Reader, io.Writer) error{tt.bin: tt.handler}}
			var out bytes.Buffer
			err := tt.mkRT(exec).Run(context.Background(), "pandoc/core:latest", []string{"--from", "docx"}, strings.NewReader("doc bytes"), &out)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "exited with code 1")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &sysexec.Fake{Handlers: map[string]func([]string, io.Reader, io.Writer) error{"docker": okHandler}}
	assert.Equal(t, "docker", newDockerRuntime(exec).Name())
	assert.Equal(t, "podman", newPodmanRuntime(exec).Name())
}
