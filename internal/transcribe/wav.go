// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Target format for the local backend.
const (
	TargetSampleRate = 16000
	TargetBitDepth   = 16
	TargetChannels   = 1

	wavFormatPCM = 1
)

// ErrNotWAV is returned for input that is not a readable PCM WAV file.
var ErrNotWAV = errors.New("not a valid WAV file")

func noop() {}

// PrepareWAV returns a path to a 16 kHz mono 16-bit copy of path. When path
// already has that format it is returned as is. Otherwise a temporary file is
// written; the returned cleanup removes it and is always safe to call.
func PrepareWAV(path string) (string, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return "", noop, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return "", noop, ErrNotWAV
	}
	if dec.SampleRate == TargetSampleRate && dec.NumChans == TargetChannels && dec.BitDepth == TargetBitDepth {
		return path, noop, nil
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return "", noop, fmt.Errorf("decoding wav: %w", err)
	}

	samples := Mono(buf, int(dec.BitDepth))
	samples = Resample(samples, int(dec.SampleRate), TargetSampleRate)

	tmp, err := os.CreateTemp("", "mdconvert-wav-*.wav")
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

// Mono downmixes buf to one channel of float samples in [-1, 1].
func Mono(buf *audio.IntBuffer, bitDepth int) []float64 {
	chans := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		chans = buf.Format.NumChannels
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	full := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned.
		offset = full
	}

	frames := len(buf.Data) / chans
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += (float64(buf.Data[i*chans+c]) - offset) / full
		}
		out[i] = sum / float64(chans)
	}
	return out
}

// Resample converts samples from rate `from` to rate `to` by linear
// interpolation.
func Resample(samples []float64, from, to int) []float64 {
	if from == to || from <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float64, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		a := samples[j]
		b := a
		if j+1 < len(samples) {
			b = samples[j+1]
		}
		out[i] = a + (b-a)*frac
	}
	return out
}

// WritePCM16 encodes mono float samples as a 16-bit PCM WAV.
func WritePCM16(w io.WriteSeeker, samples []float64, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(w, sampleRate, TargetBitDepth, TargetChannels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: TargetChannels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: TargetBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalising wav: %w", err)
	}
	return nil
}
