// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3ToWAV decodes an MP3 file into a temporary 16 kHz mono WAV. The returned
// cleanup removes the temporary file and is always non-nil.
func MP3ToWAV(ctx context.Context, path string) (string, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return "", noop, fmt.Errorf("opening mp3: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return "", noop, fmt.Errorf("decoding mp3: %w", err)
	}

	raw, err := io.ReadAll(ctxReader{ctx: ctx, r: dec})
	if err != nil {
		return "", noop, fmt.Errorf("decoding mp3: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: dec.SampleRate()},
		Data:   data,
	}
	samples := Resample(Mono(buf, 16), dec.SampleRate(), TargetSampleRate)

	tmp, err := os.CreateTemp("", "mdconvert-mp3-*.wav")
	if err != nil {
		return "", noop, fmt.Errorf("creating temp wav: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if err := WritePCM16(tmp, samples, TargetSampleRate); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("closing temp wav: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

// MP3Preparer returns a PrepareFunc that transcodes path on demand.
func MP3Preparer(path string) PrepareFunc {
	return func(ctx context.Context) (string, func(), error) {
		return MP3ToWAV(ctx, path)
	}
}

// ctxReader stops a long decode when ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
