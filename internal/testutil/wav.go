// Package testutil holds fixtures shared by tests of several packages.
package testutil

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// seekableBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// seeks back to patch chunk sizes on Close.
type seekableBuffer struct {
	buf []byte
	pos int64
}

func (sb *seekableBuffer) Write(p []byte) (int, error) {
	end := sb.pos + int64(len(p))
	if end > int64(len(sb.buf)) {
		grown := make([]byte, end)
		copy(grown, sb.buf)
		sb.buf = grown
	}
	copy(sb.buf[sb.pos:], p)
	sb.pos = end
	return len(p), nil
}

func (sb *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = sb.pos + offset
	case io.SeekEnd:
		abs = int64(len(sb.buf)) + offset
	default:
		return 0, errors.New("seekableBuffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seekableBuffer: negative position")
	}
	sb.pos = abs
	return abs, nil
}

// EncodeWAV encodes interleaved PCM samples as a WAV file in memory, for
// sound fixtures.
func EncodeWAV(samples []int, sampleRate, bitDepth, numChannels int) ([]byte, error) {
	out := &seekableBuffer{}
	enc := wav.NewEncoder(out, sampleRate, bitDepth, numChannels, 1)

	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: numChannels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize WAV data: %w", err)
	}

	return out.buf, nil
}
