package myaudio

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FormatUnknown is reported for payloads that are not valid WAV files.
const FormatUnknown = "unknown"

// AudioInfo describes a fetched sound.
type AudioInfo struct {
	Format       string        `yaml:"format"`
	SampleRate   int           `yaml:"sample_rate,omitempty"`
	NumChannels  int           `yaml:"channels,omitempty"`
	BitDepth     int           `yaml:"bit_depth,omitempty"`
	TotalSamples int           `yaml:"total_samples,omitempty"` // per channel
	Duration     time.Duration `yaml:"duration,omitempty"`
	PeakDBFS     float64       `yaml:"peak_dbfs,omitempty"` // 0 for silence or unsupported bit depths
}

// chunkSamples is the PCM read size used while scanning for the peak.
const chunkSamples = 8192

// Inspect reads the WAV header and samples of data. Data that is not a WAV
// file yields Format "unknown" and no error; a WAV file whose sample data is
// truncated or corrupt returns an error.
func Inspect(data []byte) (AudioInfo, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return AudioInfo{Format: FormatUnknown}, nil
	}

	info := AudioInfo{
		Format:      "wav",
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
		BitDepth:    int(decoder.BitDepth),
	}

	if err := decoder.FwdToPCM(); err != nil {
		return info, fmt.Errorf("error locating PCM data: %w", err)
	}

	frameSize := int64(info.NumChannels) * int64(info.BitDepth/8)
	if frameSize > 0 {
		info.TotalSamples = int(decoder.PCMLen() / frameSize)
	}
	if info.SampleRate > 0 {
		info.Duration = time.Duration(info.TotalSamples) * time.Second / time.Duration(info.SampleRate)
	}

	divisor, err := getAudioDivisor(info.BitDepth)
	if err != nil {
		// Header facts are still useful without a level
		return info, nil
	}

	peak, err := peakLevel(decoder, divisor)
	if err != nil {
		return info, fmt.Errorf("error reading PCM data: %w", err)
	}
	if peak > 0 {
		info.PeakDBFS = 20 * math.Log10(peak)
	}

	return info, nil
}

// peakLevel returns the largest absolute sample normalized to [0, 1].
func peakLevel(decoder *wav.Decoder, divisor float64) (float64, error) {
	buf := &audio.IntBuffer{
		Data:   make([]int, chunkSamples),
		Format: decoder.Format(),
	}

	var peak int
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			if sample < 0 {
				sample = -sample
			}
			peak = max(peak, sample)
		}
	}

	return min(float64(peak)/divisor, 1), nil
}

// getAudioDivisor returns the full-scale value of a signed sample.
func getAudioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}
